package session

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	assert.Equal(t, "No match loaded", ctx.GetMatch().Name)
	assert.Empty(t, ctx.Attrs())
}

func TestContext_Attrs(t *testing.T) {
	ctx := NewContext()
	ctx.SetMatch(&core.MatchInfo{ID: 7, Name: "duel"})

	attrs := ctx.Attrs()
	assert.Len(t, attrs, 2)
	assert.Equal(t, "matchId", attrs[0].Key)

	ctx.SetTurn(3, "execution")
	attrs = ctx.Attrs()
	assert.Len(t, attrs, 4)
	assert.Equal(t, slog.Uint64("turn", 3), attrs[2])
	assert.Equal(t, slog.String("phase", "execution"), attrs[3])

	turn, phase := ctx.Turn()
	assert.Equal(t, uint(3), turn)
	assert.Equal(t, "execution", phase)
}

func TestContext_SetMatchResetsTurn(t *testing.T) {
	ctx := NewContext()
	ctx.SetMatch(&core.MatchInfo{ID: 1})
	ctx.SetTurn(5, "planning")
	ctx.SetMatch(&core.MatchInfo{ID: 2})

	turn, phase := ctx.Turn()
	assert.Zero(t, turn)
	assert.Empty(t, phase)
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx.SetTurn(uint(i), "planning")
		}()
		go func() {
			defer wg.Done()
			_ = ctx.Attrs()
		}()
	}
	wg.Wait()
}
