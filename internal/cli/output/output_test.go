package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type amount int64

func (a amount) String() string { return "$" + string(rune('0'+a)) }

type row struct {
	ID     string `json:"_id"`
	Name   string `yaml:"name"`
	Amount amount
	Secret string `table:"-"`
	Extra  string `table:"wide"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTableFormatter_Slice(t *testing.T) {
	rows := []row{{ID: "a1", Name: "Food", Amount: 3, Secret: "x", Extra: "e"}}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, rows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "NAME", "AMOUNT", "a1", "Food", "$3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SECRET") || strings.Contains(out, "EXTRA") {
		t.Errorf("hidden column shown:\n%s", out)
	}

	buf.Reset()
	(&TableFormatter{Wide: true}).Format(&buf, rows)
	if !strings.Contains(buf.String(), "EXTRA") {
		t.Errorf("wide mode missing EXTRA:\n%s", buf.String())
	}
}

func TestTableFormatter_Struct(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{}).Format(&buf, &row{Name: "n", Amount: 1})
	out := buf.String()
	if !strings.Contains(out, "FIELD") || !strings.Contains(out, "name") || !strings.Contains(out, "$1") {
		t.Errorf("struct table:\n%s", out)
	}
}

func TestTableFormatter_Map(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{}).Format(&buf, map[string]int{"b": 2, "a": 1})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "a") {
		t.Errorf("map table not sorted:\n%s", buf.String())
	}
}

type view struct{ n int }

func (v view) Tables(wide bool) []*Table {
	first := NewTable("Totals", "A", "B")
	first.AddRow("1", "2")
	second := NewTable("Recent", "X")
	if wide {
		second.AddRow("wide")
	}
	return []*Table{first, second}
}

func (v view) View() any { return map[string]int{"count": v.n} }

func TestTableFormatter_Tabler(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{Wide: true}).Format(&buf, view{})
	want := "Totals\nA  B\n1  2\n\nRecent\nX\nwide\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestJSONAndYAMLUseView(t *testing.T) {
	var buf bytes.Buffer
	(&JSONFormatter{}).Format(&buf, view{n: 7})
	if strings.TrimSpace(buf.String()) != "{\n  \"count\": 7\n}" {
		t.Errorf("json = %q", buf.String())
	}

	buf.Reset()
	if err := (&YAMLFormatter{}).Format(&buf, view{n: 7}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "count: 7\n" {
		t.Errorf("yaml = %q", buf.String())
	}
}

func TestFormatValue_Empty(t *testing.T) {
	var buf bytes.Buffer
	(&TableFormatter{NoHeaders: true}).Format(&buf, []struct {
		S string
		T time.Time
		L []int
		P *int
	}{{}})
	fields := strings.Fields(buf.String())
	if len(fields) != 4 {
		t.Fatalf("fields = %q", fields)
	}
	for _, f := range fields {
		if f != "-" {
			t.Errorf("empty cell = %q, want -", f)
		}
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, "Importing", 4)
	bar.Set(1, 4)
	bar.Increment(1)
	bar.Finish()

	out := buf.String()
	if !strings.Contains(out, "(2/4)") || !strings.Contains(out, " 50%") {
		t.Errorf("progress = %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish did not end the line")
	}
}

func TestSpinner_StopIsIdempotent(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Loading")
	s.interval = time.Millisecond
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Success("done")
	s.Stop()
	s.Fail("ignored")

	out := buf.String()
	if !strings.Contains(out, "Loading") || !strings.HasSuffix(out, "✓ done\n") {
		t.Errorf("spinner output = %q", out)
	}
}
