package diagnosis

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-bot/internal/domain/entity"
)

const (
	maxFallback  = "Maxillary Arch: Fully dentate or classification criteria not met."
	mandFallback = "Mandibular Arch: Fully dentate or classification criteria not met."
)

func labels(ss ...string) []entity.Label {
	out := make([]entity.Label, 0, len(ss))
	for _, s := range ss {
		out = append(out, entity.Label(s))
	}
	return out
}

func TestDiagnose_Scenarios(t *testing.T) {
	engine := NewEngine(nil)

	cases := []struct {
		name  string
		input []entity.Label
		want  []string
	}{
		{
			name:  "empty",
			input: nil,
			want: []string{
				"No broken root detected.",
				"No periodontally compromised tooth detected.",
				maxFallback,
				mandFallback,
			},
		},
		{
			name:  "counts only",
			input: labels("Broken_Root", "Broken_Root", "PCT"),
			want: []string{
				"2 broken roots detected.",
				"A single periodontally compromised tooth detected.",
				maxFallback,
				mandFallback,
			},
		},
		{
			name:  "class I maxillary",
			input: labels("Free_R_Max", "Free_L_Max"),
			want: []string{
				"No broken root detected.",
				"No periodontally compromised tooth detected.",
				"Maxillary Kennedy classification: Class I (Bilateral posterior edentulous areas)",
				mandFallback,
			},
		},
		{
			name:  "class IV wins over free end",
			input: labels("Not_Free_Center_Max", "Free_R_Max"),
			want: []string{
				"No broken root detected.",
				"No periodontally compromised tooth detected.",
				"Maxillary Kennedy classification: Class IV (Anterior edentulous area crossing midline)",
				mandFallback,
			},
		},
		{
			name:  "class III mandibular plural",
			input: labels("Not_Free_Mand", "Not_Free_Mand", "Not_Free_Mand"),
			want: []string{
				"No broken root detected.",
				"No periodontally compromised tooth detected.",
				maxFallback,
				"Mandibular Kennedy classification: Class III (3 bounded edentulous areas)",
			},
		},
		{
			name:  "class II right",
			input: labels("Free_R_Max"),
			want: []string{
				"No broken root detected.",
				"No periodontally compromised tooth detected.",
				"Maxillary Kennedy classification: Class II (Unilateral posterior edentulous area - right)",
				mandFallback,
			},
		},
		{
			name:  "class II left hides class III",
			input: labels("Not_Free_Mand", "Free_L_Mand"),
			want: []string{
				"No broken root detected.",
				"No periodontally compromised tooth detected.",
				maxFallback,
				"Mandibular Kennedy classification: Class II (Unilateral posterior edentulous area - left)",
			},
		},
		{
			name:  "class III singular",
			input: labels("Not_Free_Max", "PCT", "PCT", "PCT"),
			want: []string{
				"No broken root detected.",
				"3 periodontally compromised teeth detected.",
				"Maxillary Kennedy classification: Class III (1 bounded edentulous area)",
				mandFallback,
			},
		},
		{
			name:  "unknown labels ignored",
			input: labels("Unknown(12)", "Implant_Max", "Broken_Root"),
			want: []string{
				"A single broken root detected.",
				"No periodontally compromised tooth detected.",
				maxFallback,
				mandFallback,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Diagnose(tc.input).Statements()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("statements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiagnose_AlwaysFourStatements(t *testing.T) {
	engine := NewEngine(nil)
	vocab := entity.DefaultVocabulary()

	var input []entity.Label
	for i := 0; i < 3*len(vocab); i++ {
		input = append(input, vocab[i%len(vocab)])
		require.Len(t, engine.Diagnose(input).Statements(), entity.ReportSize)
	}
}

func TestDiagnose_Idempotent(t *testing.T) {
	engine := NewEngine(nil)
	input := labels("Free_L_Mand", "Broken_Root", "Not_Free_Max", "Not_Free_Max")

	first := engine.Diagnose(input)
	second := engine.Diagnose(input)
	require.Equal(t, first, second)
	require.Equal(t, labels("Free_L_Mand", "Broken_Root", "Not_Free_Max", "Not_Free_Max"), input)
}

func TestDiagnose_BrokenRootMonotonic(t *testing.T) {
	engine := NewEngine(nil)
	var input []entity.Label
	prev := -1
	for i := 0; i < 5; i++ {
		report := engine.Diagnose(input)
		require.GreaterOrEqual(t, report.BrokenRoots, prev)
		prev = report.BrokenRoots
		input = append(input, entity.LabelBrokenRoot)
	}
	require.Equal(t, 4, prev)
}

func TestDiagnose_ArchIndependence(t *testing.T) {
	engine := NewEngine(nil)
	mand := labels("Free_R_Mand", "Free_L_Mand")
	baseline := engine.Diagnose(mand)

	maxSets := [][]entity.Label{
		labels("Free_R_Max"),
		labels("Not_Free_Center_Max"),
		labels("Not_Free_Max", "Not_Free_Max"),
		labels("Free_R_Max", "Free_L_Max"),
	}
	for _, maxLabels := range maxSets {
		report := engine.Diagnose(append(append([]entity.Label{}, maxLabels...), mand...))
		require.Equal(t, baseline.Mandibular, report.Mandibular)
		require.Equal(t, engine.Diagnose(maxLabels).Maxillary, report.Maxillary)
	}
}

func TestDiagnose_CustomTable(t *testing.T) {
	table := entity.DefaultFindingTable()
	table["Edentulous_Gap_Max"] = entity.Finding{Kind: entity.FindingNotFree, Arch: entity.ArchMaxillary}
	engine := NewEngine(table)

	report := engine.Diagnose(labels("Edentulous_Gap_Max", "Not_Free_Max"))
	require.Equal(t, entity.KennedyClass{Type: entity.KennedyClassIII, Count: 2}, report.Maxillary)
}

func TestDiagnose_Concurrent(t *testing.T) {
	engine := NewEngine(nil)
	input := labels("Free_R_Max", "Not_Free_Mand", "PCT")
	want := engine.Diagnose(input)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, engine.Diagnose(input))
		}()
	}
	wg.Wait()
}

func TestDiagnoseDetections_IgnoresMetadata(t *testing.T) {
	engine := NewEngine(nil)
	dets := []entity.Detection{
		{ClassIndex: 2, Label: entity.LabelFreeRightMax, Confidence: 0.1, Box: entity.Box{CX: 0.2, CY: 0.3, W: 0.1, H: 0.1}},
		{ClassIndex: 3, Label: entity.LabelFreeLeftMax, Confidence: 0.99},
	}
	report := engine.DiagnoseDetections(dets)
	require.Equal(t, entity.KennedyClassI, report.Maxillary.Type)
}
