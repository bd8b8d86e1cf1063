package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "query", "")
	if root.TraceID == "" {
		t.Fatal("root span has no trace id")
	}
	_, parse := StartChildSpan(ctx, "parse")
	parse.SetAttr("operators", 3)
	parse.End()
	_, eval := StartChildSpan(ctx, "evaluate")
	eval.End()
	root.End()

	children := root.Children()
	if len(children) != 2 || children[0].Name != "parse" || children[1].Name != "evaluate" {
		t.Fatalf("children = %v", children)
	}
	if children[0].TraceID != root.TraceID {
		t.Errorf("child trace id %q != root %q", children[0].TraceID, root.TraceID)
	}
	if v, ok := children[0].Attr("operators"); !ok || v != 3 {
		t.Errorf("attr = %v, %v", v, ok)
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	if n := strings.Count(buf.String(), "msg=span"); n != 3 {
		t.Errorf("logged %d spans, want 3:\n%s", n, buf.String())
	}
}

func TestDetachedChild(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	if span.TraceID != "" {
		t.Errorf("orphan trace id = %q, want empty", span.TraceID)
	}
	if SpanFromContext(context.Background()) != nil {
		t.Error("empty context returned a span")
	}
}
