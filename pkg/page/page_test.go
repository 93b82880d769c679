package page_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-cain/auto-invoice/pkg/page"
	"github.com/adam-cain/auto-invoice/pkg/page/pagetest"
)

func TestSelectorChainFirstMatchWins(t *testing.T) {
	fake := pagetest.New("https://portal.example.com/login")
	fake.Elements[`input[name="email"]`] = 1
	fake.Elements[`input[placeholder*="email" i]`] = 2

	sel, err := page.EmailField.Resolve(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, `input[name="email"]`, sel)
}

func TestSelectorChainFallsThrough(t *testing.T) {
	fake := pagetest.New("")
	fake.Elements[`button:has-text("Sign in")`] = 1

	err := page.SubmitButton.Click(context.Background(), fake)
	require.NoError(t, err)

	calls := fake.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "click", last.Op)
	assert.Equal(t, `button:has-text("Sign in")`, last.Selector)
}

func TestSelectorChainExhausted(t *testing.T) {
	fake := pagetest.New("")

	err := page.PasswordField.Fill(context.Background(), fake, "secret")
	require.Error(t, err)
	assert.True(t, errors.Is(err, page.ErrElementNotFound))

	var notFound *page.ElementNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "password", notFound.Field)
	assert.Len(t, notFound.Selectors, 3)
	assert.NotContains(t, fake.Ops(), "fill")
}

func TestSelectorChainFillPropagatesEngineError(t *testing.T) {
	fake := pagetest.New("")
	fake.Elements[`input[type="email"]`] = 1
	fake.Errors["fill"] = errors.New("element detached")

	err := page.EmailField.Fill(context.Background(), fake, "a@b.c")
	require.Error(t, err)
	assert.False(t, errors.Is(err, page.ErrElementNotFound))
	assert.Contains(t, err.Error(), "element detached")
}

func TestSelectorChainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := page.EmailField.Resolve(ctx, pagetest.New(""))
	assert.ErrorIs(t, err, context.Canceled)
}
