package tester

import (
	"errors"
	"fmt"
	"testing"
)

func TestPassingAssertions(t *testing.T) {
	Eq(t, []int{1, 2}, []int{1, 2})
	True(t, true)
	False(t, false)
	NoErr(t, nil)
	base := errors.New("base")
	ErrIs(t, fmt.Errorf("wrapped: %w", base), base)
	ErrIs(t, nil, nil)
	Contains(t, "[ERROR] cannot find symbol", "cannot find")
}
