package ui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalAddsKind(t *testing.T) {
	card := Card{Title: "Place a Bid"}
	card.Add(
		Label{Text: "hello", Tone: "muted"},
		Input{Name: "equity", Label: "Equity (%)", Type: "number", Error: "bad"},
		Button{Label: "Place Bid", Action: "submit_bid", Disabled: true},
	)

	raw, err := json.Marshal(card)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "card", decoded["kind"])
	assert.Equal(t, "Place a Bid", decoded["title"])

	children := decoded["children"].([]interface{})
	require.Len(t, children, 3)
	assert.Equal(t, "label", children[0].(map[string]interface{})["kind"])
	assert.Equal(t, "input", children[1].(map[string]interface{})["kind"])
	assert.Equal(t, "bad", children[1].(map[string]interface{})["error"])
	assert.Equal(t, "button", children[2].(map[string]interface{})["kind"])
	assert.Equal(t, true, children[2].(map[string]interface{})["disabled"])
}

func TestFindButtonNested(t *testing.T) {
	inner := Card{Title: "inner"}
	inner.Add(Button{Label: "Show My Bid", Action: "show_my_bid"})
	outer := Card{}
	outer.Add(Label{Text: "x"}, inner)

	b, ok := FindButton(outer, "show_my_bid")
	require.True(t, ok)
	assert.Equal(t, "Show My Bid", b.Label)

	_, ok = FindButton(outer, "place_bid")
	assert.False(t, ok)
}
