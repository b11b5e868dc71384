package ui

import (
	"testing"

	"github.com/plus3/rtx/event"
	"github.com/stretchr/testify/assert"
)

func TestParsePayload(t *testing.T) {
	assert.Equal(t, event.Nil(), parsePayload("  "))
	assert.Equal(t, event.Bool(true), parsePayload("true"))
	assert.Equal(t, event.Number(2.5), parsePayload("2.5"))
	assert.Equal(t, event.Number(1000), parsePayload("1e3"))
	assert.Equal(t, event.String("crate"), parsePayload(" crate "))
}
