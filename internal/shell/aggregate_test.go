package shell

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAggregateSingleStatus(t *testing.T) {
	status, pipestatus, err := aggregate([]string{" : 0 : "})
	if err != nil {
		t.Fatal(err)
	}
	if status != 0 {
		t.Errorf("status = %d, want 0", status)
	}
	if diff := cmp.Diff([]int{0}, pipestatus); diff != "" {
		t.Errorf("pipestatus mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateRightmostFailure(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		status     int
		pipestatus []int
	}{
		{"all zero", " : 0 0 0 : ", 0, []int{0, 0, 0}},
		{"last fails", " : 0 0 2 : ", 2, []int{0, 0, 2}},
		{"middle fails", " : 0 3 0 : ", 3, []int{0, 3, 0}},
		{"first fails", " : 4 0 0 : ", 4, []int{4, 0, 0}},
		{"rightmost of several", " : 1 0 5 : ", 5, []int{1, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, pipestatus, err := aggregate([]string{tt.payload})
			if err != nil {
				t.Fatal(err)
			}
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if diff := cmp.Diff(tt.pipestatus, pipestatus); diff != "" {
				t.Errorf("pipestatus mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregateUsesLastPayloadOnly(t *testing.T) {
	payloads := []string{" : 7 : ", " : 0 1 : ", " : 0 0 : "}
	status, pipestatus, err := aggregate(payloads)
	if err != nil {
		t.Fatal(err)
	}
	if status != 0 {
		t.Errorf("status = %d, want 0 (earlier payloads are discarded)", status)
	}
	if diff := cmp.Diff([]int{0, 0}, pipestatus); diff != "" {
		t.Errorf("pipestatus mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateNoPayloads(t *testing.T) {
	_, _, err := aggregate(nil)
	var runnerErr *RunnerError
	if !errors.As(err, &runnerErr) {
		t.Fatalf("err = %v, want *RunnerError", err)
	}
}

func TestAggregateMalformedPayload(t *testing.T) {
	for _, payload := range []string{"", "garbage", " : abc : ", " :  : "} {
		t.Run(fmt.Sprintf("%q", payload), func(t *testing.T) {
			_, _, err := aggregate([]string{payload})
			var runnerErr *RunnerError
			if !errors.As(err, &runnerErr) {
				t.Errorf("err = %v, want *RunnerError", err)
			}
		})
	}
}

func TestAggregateRoundTrip(t *testing.T) {
	// Formatting a status sequence into a payload and aggregating it back
	// must reproduce the sequence exactly.
	sequences := [][]int{
		{0},
		{1},
		{0, 1},
		{0, 1, 0},
		{255, 0, 127},
		{0, 0, 0, 0, 0},
	}

	for _, seq := range sequences {
		fields := make([]string, len(seq))
		for i, n := range seq {
			fields[i] = fmt.Sprintf("%d", n)
		}
		raw := strings.Join(fields, " ")

		payload := formatPayload(raw)
		d := newDemux(nil)
		if err := d.run(strings.NewReader(payload)); err != nil {
			t.Fatal(err)
		}
		_, pipestatus, err := aggregate(d.payloads)
		if err != nil {
			t.Fatalf("%v: %v", seq, err)
		}
		if diff := cmp.Diff(seq, pipestatus); diff != "" {
			t.Errorf("round trip of %v mismatch (-want +got):\n%s", seq, diff)
		}
	}
}
