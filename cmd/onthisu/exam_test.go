package main

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"
)

func TestReadLinesDeliversAndCloses(t *testing.T) {
	in := bufio.NewScanner(strings.NewReader("1 A\nnop\n"))
	lines := readLines(context.Background(), in)

	if got := <-lines; got != "1 A" {
		t.Errorf("first line = %q, want %q", got, "1 A")
	}
	if got := <-lines; got != "nop" {
		t.Errorf("second line = %q, want %q", got, "nop")
	}
	if _, ok := <-lines; ok {
		t.Error("channel should close after input is exhausted")
	}
}

func TestReadLinesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := bufio.NewScanner(strings.NewReader("pending\n"))
	lines := readLines(ctx, in)

	// Nobody receives; cancellation must release the blocked send.
	cancel()

	select {
	case _, ok := <-lines:
		if ok {
			// The send may have won the race; the channel must still close.
			if _, ok := <-lines; ok {
				t.Error("channel should close after cancellation")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("reader did not stop after cancellation")
	}
}
