package main

import (
	"reflect"
	"testing"
)

func TestRunExitHooks(t *testing.T) {
	var order []string
	onExit(func() { order = append(order, "sync logger") })
	onExit(func() { order = append(order, "close db") })

	runExitHooks()

	want := []string{"close db", "sync logger"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("hooks ran as %v, want %v", order, want)
	}
	if len(exitHooks) != 0 {
		t.Errorf("exitHooks not cleared: %d left", len(exitHooks))
	}

	runExitHooks()
	if len(order) != 2 {
		t.Errorf("hooks ran again after being cleared: %v", order)
	}
}
