package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConfirmDownAnswers(t *testing.T) {
	cases := map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"sure":  false,
	}
	for answer, want := range cases {
		var out bytes.Buffer
		err := confirmDown(strings.NewReader(answer), &out, true, 0)
		if want && err != nil {
			t.Fatalf("answer %q: expected confirmation, got %v", answer, err)
		}
		if !want && !errors.Is(err, errDownNotConfirmed) {
			t.Fatalf("answer %q: expected refusal, got %v", answer, err)
		}
		if !strings.Contains(out.String(), "the latest migration") {
			t.Fatalf("unexpected prompt %q", out.String())
		}
	}
}

func TestConfirmDownNamesTarget(t *testing.T) {
	var out bytes.Buffer
	if err := confirmDown(strings.NewReader("y\n"), &out, true, 1); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !strings.Contains(out.String(), "above version 1") {
		t.Fatalf("prompt should name the target, got %q", out.String())
	}
}

func TestConfirmDownRequiresTerminal(t *testing.T) {
	var out bytes.Buffer
	err := confirmDown(strings.NewReader("y\n"), &out, false, 0)
	if !errors.Is(err, errDownNotConfirmed) {
		t.Fatalf("expected refusal without a terminal, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no prompt expected without a terminal, got %q", out.String())
	}
}
