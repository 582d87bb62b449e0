package scenario_test

import (
	"context"
	"errors"
	"testing"

	"wakutest/internal/scenario"
)

func TestUnwindReverseOrder(t *testing.T) {
	var order []string
	s := &scenario.Stack{}
	for _, label := range []string{"first", "second", "third"} {
		label := label
		s.Push(label, func(ctx context.Context) error {
			order = append(order, label)
			return nil
		})
	}

	failed := s.Unwind(context.Background())
	if len(failed) != 0 {
		t.Fatalf("teardown errors: %v", failed)
	}

	want := []string{"third", "second", "first"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("unwind order = %v, want %v", order, want)
		}
	}
	if s.Len() != 0 {
		t.Errorf("stack not emptied, %d steps left", s.Len())
	}
}

func TestUnwindContinuesPastFailures(t *testing.T) {
	var ran []string
	s := &scenario.Stack{}
	s.Push("innermost", func(ctx context.Context) error {
		ran = append(ran, "innermost")
		return nil
	})
	s.Push("failing", func(ctx context.Context) error {
		ran = append(ran, "failing")
		return errors.New("device busy")
	})
	s.Push("outermost", func(ctx context.Context) error {
		ran = append(ran, "outermost")
		return nil
	})

	failed := s.Unwind(context.Background())

	if len(ran) != 3 {
		t.Fatalf("ran %v, want all three steps", ran)
	}
	if len(failed) != 1 || failed[0].Step != "failing" {
		t.Fatalf("failed = %v, want only the failing step", failed)
	}
}

func TestUnwindEmptyStack(t *testing.T) {
	s := &scenario.Stack{}
	if failed := s.Unwind(context.Background()); len(failed) != 0 {
		t.Fatalf("teardown errors on empty stack: %v", failed)
	}
}
