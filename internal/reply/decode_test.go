package reply

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDecodeMultiWellFormed(t *testing.T) {
	got := DecodeMulti("SUMMARY: Meeting moved.\n\nREPLY 1: Sounds good.\n\nREPLY 2: Works for me.\n\nREPLY 3: I'll be there.")
	if got.Summary != "Meeting moved." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	want := []string{"Sounds good.", "Works for me.", "I'll be there."}
	if !reflect.DeepEqual(got.Replies, want) {
		t.Fatalf("unexpected replies %q", got.Replies)
	}
}

func TestDecodeMultiNoLabels(t *testing.T) {
	got := DecodeMulti("no labels here at all")
	if !reflect.DeepEqual(got, fallbackResult()) {
		t.Fatalf("expected fallback result, got %+v", got)
	}
	if got.Summary != FallbackSummary {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	for i, r := range got.Replies {
		if r != FillerReply {
			t.Fatalf("reply %d: expected filler, got %q", i, r)
		}
	}
}

func TestDecodeMultiKeepsFirstThree(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("SUMMARY: Five drafts.\n")
	for i := 1; i <= 5; i++ {
		// the label only accepts 1-3, so number by position modulo 3
		fmt.Fprintf(&sb, "REPLY %d: draft %d\n", (i-1)%3+1, i)
	}
	got := DecodeMulti(sb.String())
	want := []string{"draft 1", "draft 2", "draft 3"}
	if !reflect.DeepEqual(got.Replies, want) {
		t.Fatalf("unexpected replies %q", got.Replies)
	}
}

func TestDecodeMultiPadsShortOutput(t *testing.T) {
	got := DecodeMulti("Summary: Only one.\nReply 1: The single draft.")
	want := []string{"The single draft.", FillerReply, FillerReply}
	if !reflect.DeepEqual(got.Replies, want) {
		t.Fatalf("unexpected replies %q", got.Replies)
	}
	if got.Summary != "Only one." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
}

func TestDecodeMultiMultilineSections(t *testing.T) {
	text := strings.Join([]string{
		"Some preamble the model added.",
		"summary: The client",
		"  wants a refund.",
		"",
		"reply1: We are sorry.",
		"The refund is on its way.",
		"",
		"REPLY 2:",
		"Thanks for your patience.",
		"REPLY  3: Refund issued.\r",
	}, "\n")
	got := DecodeMulti(text)
	if got.Summary != "The client wants a refund." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	want := []string{"We are sorry. The refund is on its way.", "Thanks for your patience.", "Refund issued."}
	if !reflect.DeepEqual(got.Replies, want) {
		t.Fatalf("unexpected replies %q", got.Replies)
	}
}

func TestDecodeMultiMissingSummary(t *testing.T) {
	got := DecodeMulti("REPLY 1: a\nREPLY 2: b\nREPLY 3: c")
	if got.Summary != FallbackSummary {
		t.Fatalf("expected fallback summary, got %q", got.Summary)
	}
	if got.Replies[2] != "c" {
		t.Fatalf("unexpected replies %q", got.Replies)
	}
}

func TestDecodeMultiSummaryLabelAfterReply(t *testing.T) {
	got := DecodeMulti("REPLY 1: first\nmore\nSUMMARY: late summary\nREPLY 2: second")
	want := []string{"first more", "second", FillerReply}
	if !reflect.DeepEqual(got.Replies, want) {
		t.Fatalf("unexpected replies %q", got.Replies)
	}
	if got.Summary != "late summary" {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
}

func TestDecodeMultiCapsSummary(t *testing.T) {
	long := strings.Repeat("word ", 80)
	got := DecodeMulti("SUMMARY: " + long + "\nREPLY 1: ok")
	if n := utf8.RuneCountInString(got.Summary); n != maxSummaryLen {
		t.Fatalf("expected summary length %d, got %d", maxSummaryLen, n)
	}
	if !strings.HasSuffix(got.Summary, "...") {
		t.Fatalf("expected ellipsis, got %q", got.Summary)
	}
}

func TestDecodeMultiCapsSummaryByRunes(t *testing.T) {
	long := strings.Repeat("é", 250)
	got := DecodeMulti("SUMMARY: " + long)
	if n := utf8.RuneCountInString(got.Summary); n != maxSummaryLen {
		t.Fatalf("expected %d runes, got %d", maxSummaryLen, n)
	}
	if !utf8.ValidString(got.Summary) {
		t.Fatal("summary cut inside a rune")
	}
}

func TestDecodeMultiAlwaysThreeReplies(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"REPLY 1:",
		"SUMMARY:",
		"REPLY 1: a\nREPLY 2: b",
		"REPLY 1: a\nREPLY 2: b\nREPLY 3: c\nREPLY 1: d",
		"reply 4: not a label",
		"{\"candidates\": []}",
	}
	for _, in := range inputs {
		got := DecodeMulti(in)
		if len(got.Replies) != replyCount {
			t.Fatalf("input %q: expected %d replies, got %d", in, replyCount, len(got.Replies))
		}
		if got.Summary == "" {
			t.Fatalf("input %q: empty summary", in)
		}
	}
}

func TestDecodeMultiIdempotent(t *testing.T) {
	in := "SUMMARY: s\nREPLY 1: a\nREPLY 2: b\nREPLY 3: c"
	first := DecodeMulti(in)
	for i := 0; i < 5; i++ {
		if got := DecodeMulti(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("decode not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestDecodeMultiFallbackFlag(t *testing.T) {
	if _, fallback := decodeMulti("plain text"); !fallback {
		t.Fatal("expected fallback flag for unlabelled text")
	}
	if _, fallback := decodeMulti("REPLY 1: a"); fallback {
		t.Fatal("did not expect fallback flag for labelled text")
	}
}

func TestDecodeSingle(t *testing.T) {
	got := DecodeSingle("Summary: Quick note.\nReply: Thanks, will do.")
	if got.Summary != "Quick note." || got.Reply != "Thanks, will do." {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDecodeSingleNoMarkers(t *testing.T) {
	got := DecodeSingle("Just some text with no markers")
	if got.Summary != MissingSummary {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	if got.Reply != "Just some text with no markers" {
		t.Fatalf("unexpected reply %q", got.Reply)
	}
}

func TestDecodeSingleCaseInsensitive(t *testing.T) {
	got := DecodeSingle("SUMMARY:   They need the report.\n\nREPLY:  I will send it today.  ")
	if got.Summary != "They need the report." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
	if got.Reply != "I will send it today." {
		t.Fatalf("unexpected reply %q", got.Reply)
	}
}

func TestDecodeSingleEmptyReply(t *testing.T) {
	text := "Summary: Something.\nReply:   "
	got := DecodeSingle(text)
	if got.Reply != text {
		t.Fatalf("expected whole text as reply, got %q", got.Reply)
	}
	if got.Summary != "Something." {
		t.Fatalf("unexpected summary %q", got.Summary)
	}
}

func TestDecodeSingleSplitsOnFirstMarker(t *testing.T) {
	got := DecodeSingle("Summary: s\nReply: first part. Reply: second part.")
	if got.Reply != "first part. Reply: second part." {
		t.Fatalf("unexpected reply %q", got.Reply)
	}
}

func TestDecodeSingleMissingSummaryBeforeMarker(t *testing.T) {
	got := DecodeSingle("Reply: Sure thing.")
	if got.Summary != MissingSummary || got.Reply != "Sure thing." {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDecodeMultiRecoversFromPanic(t *testing.T) {
	orig := scanLine
	t.Cleanup(func() { scanLine = orig })
	scanLine = func(*multiDecoder, string) { panic("boom") }

	got, fallback := decodeMulti("SUMMARY: fine\nREPLY 1: fine")
	if !fallback {
		t.Fatal("expected fallback after panic")
	}
	if !reflect.DeepEqual(got, fallbackResult()) {
		t.Fatalf("unexpected result %+v", got)
	}
	if !reflect.DeepEqual(DecodeMulti("x"), fallbackResult()) {
		t.Fatal("DecodeMulti should return the fallback result")
	}
}

func TestResultWireShape(t *testing.T) {
	single, err := json.Marshal(DecodeSingle(""))
	if err != nil {
		t.Fatalf("marshal single: %v", err)
	}
	if string(single) != `{"summary":"Summary not available","reply":""}` {
		t.Fatalf("unexpected single json %s", single)
	}

	multi, err := json.Marshal(DecodeMulti("SUMMARY: s\nREPLY 1: a\nREPLY 2: b\nREPLY 3: c"))
	if err != nil {
		t.Fatalf("marshal multi: %v", err)
	}
	if string(multi) != `{"summary":"s","replies":["a","b","c"]}` {
		t.Fatalf("unexpected multi json %s", multi)
	}
}
