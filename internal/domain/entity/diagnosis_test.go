package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiagnosisReport_ZeroValue(t *testing.T) {
	require.Equal(t, []string{
		"No broken root detected.",
		"No periodontally compromised tooth detected.",
		"Maxillary Arch: Fully dentate or classification criteria not met.",
		"Mandibular Arch: Fully dentate or classification criteria not met.",
	}, DiagnosisReport{}.Statements())
}

func TestDiagnosisReport_CountWording(t *testing.T) {
	r := DiagnosisReport{BrokenRoots: 1, PCT: 5}
	s := r.Statements()
	require.Equal(t, "A single broken root detected.", s[0])
	require.Equal(t, "5 periodontally compromised teeth detected.", s[1])
}

func TestKennedyClass_Statement(t *testing.T) {
	cases := []struct {
		class KennedyClass
		arch  Arch
		want  string
	}{
		{KennedyClass{Type: KennedyClassI}, ArchMaxillary, "Maxillary Kennedy classification: Class I (Bilateral posterior edentulous areas)"},
		{KennedyClass{Type: KennedyClassII, Side: SideLeft}, ArchMandibular, "Mandibular Kennedy classification: Class II (Unilateral posterior edentulous area - left)"},
		{KennedyClass{Type: KennedyClassIII, Count: 1}, ArchMaxillary, "Maxillary Kennedy classification: Class III (1 bounded edentulous area)"},
		{KennedyClass{Type: KennedyClassIII, Count: 2}, ArchMandibular, "Mandibular Kennedy classification: Class III (2 bounded edentulous areas)"},
		{KennedyClass{Type: KennedyClassIV}, ArchMandibular, "Mandibular Kennedy classification: Class IV (Anterior edentulous area crossing midline)"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.class.Statement(tc.arch))
	}
}

func TestDiagnosisReport_ArchOrder(t *testing.T) {
	r := DiagnosisReport{
		Maxillary:  KennedyClass{Type: KennedyClassIV},
		Mandibular: KennedyClass{Type: KennedyClassII, Side: SideLeft},
	}
	require.Equal(t, r.Maxillary, r.Arch(ArchMaxillary))
	require.Equal(t, r.Mandibular, r.Arch(ArchMandibular))

	st := r.Statements()
	require.Len(t, st, ReportSize)
	require.Equal(t, "Maxillary Kennedy classification: Class IV (Anterior edentulous area crossing midline)", st[2])
	require.Equal(t, "Mandibular Kennedy classification: Class II (Unilateral posterior edentulous area - left)", st[3])
}
