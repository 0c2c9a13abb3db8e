package export

import (
	"bytes"
	"encoding/xml"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/pairplot/pkg/model"
	"github.com/vanderheijden86/pairplot/pkg/projection"
	"github.com/vanderheijden86/pairplot/pkg/surface"
	"github.com/vanderheijden86/pairplot/pkg/testutil"
)

func sampleSpec(t *testing.T) surface.Spec {
	t.Helper()
	records := testutil.Grid([]float64{1, 2, 3}, []float64{7, 8, 9})
	proj := projection.Project(records, nil, false, projection.Options{})
	spec := surface.BuildSpec(proj, surface.DefaultLayout())
	a, err := proj.Point(model.RoleOutput, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := proj.Pair(model.RoleOutput, 1)
	if err != nil {
		t.Fatal(err)
	}
	spec.Traces = append(spec.Traces,
		surface.MarkerOverlay(surface.OverlayName, a, b),
		surface.LineOverlay(a, b),
	)
	return spec
}

func TestSaveSnapshot_ReportsWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	err := SaveSnapshot(SnapshotOptions{Path: "/dev/full", Format: "svg", Spec: sampleSpec(t)})
	if err == nil {
		t.Fatal("expected an error when the device is full")
	}
}

func TestRenderSVG_MarkerTooltips(t *testing.T) {
	spec := sampleSpec(t)
	var buf bytes.Buffer
	if err := RenderSVG(&buf, spec); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	out := buf.String()

	for _, tr := range spec.Traces {
		if tr.Kind != surface.KindMarkers {
			continue
		}
		for i, text := range tr.Text {
			if !strings.Contains(out, "<title>"+escapeXML(text)+"</title>") {
				t.Errorf("%s point %d: missing tooltip %q", tr.Name, i, text)
			}
		}
	}

	r := testutil.Grid([]float64{1, 2, 3}, []float64{7, 8, 9})[1]
	for _, want := range []string{projection.InstructionText(r), projection.OutputText(r)} {
		if !strings.Contains(out, "<title>"+escapeXML(want)+"</title>") {
			t.Errorf("missing tooltip %q", want)
		}
	}
}

func TestSaveSnapshot_SVGAndPNG(t *testing.T) {
	spec := sampleSpec(t)
	tmp := t.TempDir()

	for _, name := range []string{"plot.svg", "plot.png", "nested/dir/plot.svg"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(tmp, name)
			if err := SaveSnapshot(SnapshotOptions{Path: out, Spec: spec}); err != nil {
				t.Fatalf("SaveSnapshot: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatal("output file is empty")
			}
		})
	}
}

func TestSaveSnapshot_ExplicitFormatOverridesExtension(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plot.img")
	if err := SaveSnapshot(SnapshotOptions{Path: out, Format: ".PNG", Spec: sampleSpec(t)}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
}

func TestSaveSnapshot_NoExtensionDefaultsToSVG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plot")
	if err := SaveSnapshot(SnapshotOptions{Path: out, Spec: sampleSpec(t)}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if _, err := os.Stat(out + ".svg"); err != nil {
		t.Fatalf("expected %s.svg: %v", out, err)
	}
}

func TestSaveSnapshot_Errors(t *testing.T) {
	spec := sampleSpec(t)
	tmp := t.TempDir()
	tests := []struct {
		name string
		opts SnapshotOptions
	}{
		{"missing path", SnapshotOptions{Spec: spec}},
		{"empty spec", SnapshotOptions{Path: filepath.Join(tmp, "a.svg")}},
		{"bad format", SnapshotOptions{Path: filepath.Join(tmp, "a.svg"), Format: "gif", Spec: spec}},
		{"bad extension", SnapshotOptions{Path: filepath.Join(tmp, "a.txt"), Spec: spec}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := SaveSnapshot(tc.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"plot.svg":  "svg",
		"PLOT.PNG":  "png",
		"plot":      "svg",
		"notes.txt": "",
	}
	for path, want := range tests {
		if got := FormatOf(path); got != want {
			t.Errorf("FormatOf(%q) = %q, want %q", path, got, want)
		}
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func TestRenderSVG_Content(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSVG(&buf, sampleSpec(t)); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	out := buf.String()

	layout := surface.DefaultLayout()
	for _, want := range []string{
		"<svg",
		escapeXML(layout.Title),
		escapeXML(layout.XTitle),
		escapeXML(layout.YTitle),
		`id="trace-` + projection.InstructionSeriesName + `"`,
		`id="trace-` + projection.OutputSeriesName + `"`,
		`id="trace-` + surface.OverlayName + `"`,
		`id="` + colorBarID + `"`,
		surface.ColorTrace,
		surface.ColorSeparator,
		"fill:" + surface.ColorBackground,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	// 3 + 3 structural markers plus 2 overlay markers.
	if got := strings.Count(out, "<circle"); got != 8 {
		t.Errorf("circle count = %d, want 8", got)
	}
	// Separator and the overlay line.
	if got := strings.Count(out, "<polyline"); got != 2 {
		t.Errorf("polyline count = %d, want 2", got)
	}
}

func TestRenderSVG_SkipsNaNPoints(t *testing.T) {
	records := testutil.Grid([]float64{1, 2}, []float64{5, 6})
	records[0].InstructionY = math.NaN()
	proj := projection.Project(records, nil, false, projection.Options{})
	var buf bytes.Buffer
	if err := RenderSVG(&buf, surface.BuildSpec(proj, surface.DefaultLayout())); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if got := strings.Count(buf.String(), "<circle"); got != 3 {
		t.Errorf("circle count = %d, want 3", got)
	}
}

func TestRenderPNG_Dimensions(t *testing.T) {
	spec := sampleSpec(t)
	spec.Layout.Width, spec.Layout.Height = 400, 300

	var buf bytes.Buffer
	if err := RenderPNG(&buf, spec); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("size = %dx%d, want 400x300", b.Dx(), b.Dy())
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 0x34 || g>>8 != 0x35 || b>>8 != 0x41 {
		t.Errorf("background = %02x%02x%02x, want 343541", r>>8, g>>8, b>>8)
	}
}

func TestNiceTicks(t *testing.T) {
	tests := []struct {
		lo, hi float64
		want   []float64
	}{
		{0, 10, []float64{0, 2, 4, 6, 8, 10}},
		{0.5, 3.5, []float64{0.5, 1, 1.5, 2, 2.5, 3, 3.5}},
		{-1, 1, []float64{-1, -0.5, 0, 0.5, 1}},
	}
	for _, tc := range tests {
		got := niceTicks(tc.lo, tc.hi, tickCount)
		if len(got) != len(tc.want) {
			t.Errorf("niceTicks(%g, %g) = %v, want %v", tc.lo, tc.hi, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("niceTicks(%g, %g) = %v, want %v", tc.lo, tc.hi, got, tc.want)
				break
			}
		}
	}
	if got := niceTicks(3, 3, tickCount); len(got) != 1 || got[0] != 3 {
		t.Errorf("degenerate range = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncate me", 8, "trunc..."},
		{"abc", 2, "ab"},
		{"x", 0, ""},
	}
	for _, tc := range tests {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
