package factcheck

import (
	"context"
	"strings"
	"testing"

	"debate-arena/internal/domain"
)

func TestSimpleCheck(t *testing.T) {
	checker := NewSimple()
	verdict, err := checker.Check(context.Background(), strings.Repeat("слово ", 10))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.Status != domain.FactCheckDisputed {
		t.Fatalf("ожидали disputed, получили %s", verdict.Status)
	}
	if len(verdict.Raw) == 0 {
		t.Fatalf("ожидали заполненный сырой ответ")
	}
}

func TestSimpleCheckShort(t *testing.T) {
	checker := NewSimple()
	verdict, err := checker.Check(context.Background(), "Коротко")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if verdict.Status != domain.FactCheckUnverifiable {
		t.Fatalf("ожидали unverifiable, получили %s", verdict.Status)
	}
}

func TestSimpleCheckEmpty(t *testing.T) {
	checker := NewSimple()
	if _, err := checker.Check(context.Background(), "   "); err != domain.ErrContentInvalid {
		t.Fatalf("ожидали ErrContentInvalid, получили %v", err)
	}
}
