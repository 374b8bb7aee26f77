package entity

import "fmt"

// KennedyType класс Кеннеди для одной дуги
type KennedyType int

const (
	KennedyUnclassified KennedyType = iota // Полный зубной ряд или критерии не выполнены
	KennedyClassI
	KennedyClassII
	KennedyClassIII
	KennedyClassIV
)

// Side сторона концевого дефекта
type Side string

const (
	SideRight Side = "right"
	SideLeft  Side = "left"
)

// KennedyClass результат классификации дуги.
type KennedyClass struct {
	Type  KennedyType `json:"type"`
	Side  Side        `json:"side,omitempty"`  // только для класса II
	Count int         `json:"count,omitempty"` // только для класса III
}

// Description возвращает описание класса без префикса дуги.
func (k KennedyClass) Description() string {
	switch k.Type {
	case KennedyClassI:
		return "Class I (Bilateral posterior edentulous areas)"
	case KennedyClassII:
		return fmt.Sprintf("Class II (Unilateral posterior edentulous area - %s)", k.Side)
	case KennedyClassIII:
		plural := ""
		if k.Count > 1 {
			plural = "s"
		}
		return fmt.Sprintf("Class III (%d bounded edentulous area%s)", k.Count, plural)
	case KennedyClassIV:
		return "Class IV (Anterior edentulous area crossing midline)"
	default:
		return "Fully dentate or classification criteria not met."
	}
}

// Statement формирует строку отчёта для дуги.
func (k KennedyClass) Statement(arch Arch) string {
	if k.Type == KennedyUnclassified {
		return fmt.Sprintf("%s Arch: %s", arch.Name(), k.Description())
	}
	return fmt.Sprintf("%s Kennedy classification: %s", arch.Name(), k.Description())
}

// ReportSize число строк в отчёте.
const ReportSize = 4

// DiagnosisReport итог диагностики по одному снимку.
type DiagnosisReport struct {
	BrokenRoots int          `json:"broken_roots"`
	PCT         int          `json:"pct"`
	Maxillary   KennedyClass `json:"maxillary"`
	Mandibular  KennedyClass `json:"mandibular"`
}

// Statements возвращает строки отчёта в фиксированном порядке:
// сломанные корни, PCT, верхняя дуга, нижняя дуга.
func (r DiagnosisReport) Statements() []string {
	out := make([]string, 0, ReportSize)
	out = append(out,
		countStatement(r.BrokenRoots, "broken root", "broken roots"),
		countStatement(r.PCT, "periodontally compromised tooth", "periodontally compromised teeth"),
	)
	for _, arch := range Arches {
		out = append(out, r.Arch(arch).Statement(arch))
	}
	return out
}

// Arch возвращает класс указанной дуги.
func (r DiagnosisReport) Arch(arch Arch) KennedyClass {
	if arch == ArchMandibular {
		return r.Mandibular
	}
	return r.Maxillary
}

func countStatement(n int, singular, plural string) string {
	switch {
	case n <= 0:
		return fmt.Sprintf("No %s detected.", singular)
	case n == 1:
		return fmt.Sprintf("A single %s detected.", singular)
	default:
		return fmt.Sprintf("%d %s detected.", n, plural)
	}
}

// Explanation текстовое пояснение отчёта для пациента.
type Explanation struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}
