package render

import (
	"strings"
	"testing"

	"github.com/loqalabs/loqa-reply/internal/reply"
)

func TestHTMLMulti(t *testing.T) {
	out, err := HTML(reply.Result{
		Summary: "Budget <approved>",
		Replies: []string{"Thanks, **great** news.", "- item one\n- item two", "<script>alert(1)</script>"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<p>Budget &lt;approved&gt;</p>",
		"<strong>great</strong>",
		"<li>item one</li>",
		`data-index="3"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("raw html from model output must not pass through:\n%s", out)
	}
}

func TestHTMLSingle(t *testing.T) {
	out, err := HTML(reply.Result{Summary: "s", Reply: "One reply."})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Count(out, "<article") != 1 || !strings.Contains(out, "<p>One reply.</p>") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestText(t *testing.T) {
	out := Text(reply.Result{Summary: "Meeting moved.", Replies: []string{"a", "b", "c"}}, 60)
	for _, want := range []string{"Summary", "Meeting moved.", "Reply 1", "Reply 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	single := Text(reply.Result{Summary: "s", Reply: "only"}, 0)
	if strings.Contains(single, "Reply 1") || !strings.Contains(single, "only") {
		t.Fatalf("unexpected single output:\n%s", single)
	}
}
