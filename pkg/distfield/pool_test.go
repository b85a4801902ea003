package distfield

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolCreate(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit", 4, 4},
		{"zero", 0, runtime.GOMAXPROCS(0)},
		{"negative", -3, runtime.GOMAXPROCS(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.workers)
			defer p.Close()
			if p.Workers() != tt.want {
				t.Errorf("Workers() = %d, want %d", p.Workers(), tt.want)
			}
			if !p.IsRunning() {
				t.Error("pool should be running after creation")
			}
		})
	}
}

func TestPoolExecuteAll(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}
	if err := p.ExecuteAll(work); err != nil {
		t.Fatal(err)
	}
	if got := counter.Load(); got != 100 {
		t.Errorf("counter = %d, want 100", got)
	}
}

func TestPoolRowsCoverEveryRowOnce(t *testing.T) {
	for _, height := range []int{1, 2, 7, 64, 1000} {
		p := NewPool(3)
		hits := make([]atomic.Int32, height)
		err := p.Rows(height, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				hits[y].Add(1)
			}
		})
		p.Close()
		if err != nil {
			t.Fatalf("height %d: %v", height, err)
		}
		for y := range hits {
			if n := hits[y].Load(); n != 1 {
				t.Fatalf("height %d: row %d visited %d times", height, y, n)
			}
		}
	}
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close() // second close is a no-op

	if p.IsRunning() {
		t.Error("pool should not run after Close")
	}
	if err := p.ExecuteAll([]func(){func() {}}); err != ErrResourceUnavailable {
		t.Errorf("ExecuteAll() error = %v, want ErrResourceUnavailable", err)
	}
	if err := p.Rows(1, func(int, int) {}); err != ErrResourceUnavailable {
		t.Errorf("Rows() error = %v, want ErrResourceUnavailable", err)
	}
}

func TestPoolCloseDuringExecuteAll(t *testing.T) {
	for iter := 0; iter < 20; iter++ {
		p := NewPool(4)
		var counter atomic.Int64
		work := make([]func(), 2000)
		for i := range work {
			work[i] = func() {
				time.Sleep(20 * time.Microsecond)
				counter.Add(1)
			}
		}

		done := make(chan error, 1)
		go func() { done <- p.ExecuteAll(work) }()
		time.Sleep(200 * time.Microsecond)
		p.Close()

		select {
		case err := <-done:
			switch err {
			case nil:
				if got := counter.Load(); got != int64(len(work)) {
					t.Fatalf("iteration %d: ran %d of %d items", iter, got, len(work))
				}
			case ErrResourceUnavailable:
			default:
				t.Fatalf("iteration %d: ExecuteAll() error = %v", iter, err)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("iteration %d: ExecuteAll hung after Close", iter)
		}
	}
}
