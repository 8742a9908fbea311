// Package ui is the portal's design system: a fixed set of four components
// (card, button, input, label) that views render their state into. The
// browser draws whatever tree it receives; no other component kinds exist.
package ui

import "encoding/json"

// Component is implemented by Card, Button, Input and Label only
type Component interface {
	Kind() string
	component()
}

// Card groups other components under an optional title
type Card struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Children    []Component `json:"children,omitempty"`
}

// Button triggers a portal action
type Button struct {
	ID       string `json:"id,omitempty"`
	Label    string `json:"label"`
	Action   string `json:"action,omitempty"`
	Variant  string `json:"variant,omitempty"` // primary, outline, success
	Disabled bool   `json:"disabled,omitempty"`
}

// Input is a form field
type Input struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Label is a piece of text
type Label struct {
	Text string `json:"text"`
	Tone string `json:"tone,omitempty"` // muted, info, success, warning, error
}

func (Card) Kind() string   { return "card" }
func (Button) Kind() string { return "button" }
func (Input) Kind() string  { return "input" }
func (Label) Kind() string  { return "label" }

func (Card) component()   {}
func (Button) component() {}
func (Input) component()  {}
func (Label) component()  {}

// Add appends children and returns the card for chaining
func (c *Card) Add(children ...Component) *Card {
	c.Children = append(c.Children, children...)
	return c
}

func (c Card) MarshalJSON() ([]byte, error) {
	type alias Card
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{c.Kind(), alias(c)})
}

func (b Button) MarshalJSON() ([]byte, error) {
	type alias Button
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{b.Kind(), alias(b)})
}

func (i Input) MarshalJSON() ([]byte, error) {
	type alias Input
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{i.Kind(), alias(i)})
}

func (l Label) MarshalJSON() ([]byte, error) {
	type alias Label
	return json.Marshal(struct {
		Kind string `json:"kind"`
		alias
	}{l.Kind(), alias(l)})
}

// Walk visits every component of the tree depth first
func Walk(c Component, fn func(Component)) {
	fn(c)
	switch card := c.(type) {
	case Card:
		for _, child := range card.Children {
			Walk(child, fn)
		}
	case *Card:
		for _, child := range card.Children {
			Walk(child, fn)
		}
	}
}

// FindButton returns the first button in the tree with the given action
func FindButton(c Component, action string) (Button, bool) {
	var found Button
	ok := false
	Walk(c, func(comp Component) {
		if b, isButton := comp.(Button); isButton && !ok && b.Action == action {
			found, ok = b, true
		}
	})
	return found, ok
}
