// Package diagnosis строит диагностический отчёт по меткам детектора.
package diagnosis

import "dental-bot/internal/domain/entity"

// Engine сопоставляет метки находкам и применяет правила диагностики.
// Не хранит состояния между вызовами и безопасен для конкурентного использования.
type Engine struct {
	table entity.FindingTable
}

// NewEngine создаёт движок с таблицей находок. nil означает таблицу по умолчанию.
func NewEngine(table entity.FindingTable) *Engine {
	if table == nil {
		table = entity.DefaultFindingTable()
	}
	return &Engine{table: table}
}

// Diagnose возвращает отчёт для набора меток. Нераспознанные метки пропускаются.
func (e *Engine) Diagnose(labels []entity.Label) entity.DiagnosisReport {
	findings := e.ingest(labels)

	var report entity.DiagnosisReport
	report.BrokenRoots = findings.count(entity.ArchNone, entity.FindingBrokenRoot)
	report.PCT = findings.count(entity.ArchNone, entity.FindingPCT)
	report.Maxillary = classifyArch(findings.arch(entity.ArchMaxillary))
	report.Mandibular = classifyArch(findings.arch(entity.ArchMandibular))
	return report
}

// DiagnoseDetections строит отчёт по детекциям, учитывая только их метки.
func (e *Engine) DiagnoseDetections(detections []entity.Detection) entity.DiagnosisReport {
	return e.Diagnose(entity.Labels(detections))
}

type findingSet []entity.Finding

func (e *Engine) ingest(labels []entity.Label) findingSet {
	out := make(findingSet, 0, len(labels))
	for _, label := range labels {
		if f, ok := e.table.Lookup(label); ok {
			out = append(out, f)
		}
	}
	return out
}

func (s findingSet) count(arch entity.Arch, kind entity.FindingKind) int {
	n := 0
	for _, f := range s {
		if f.Arch == arch && f.Kind == kind {
			n++
		}
	}
	return n
}

func (s findingSet) arch(arch entity.Arch) map[entity.FindingKind]int {
	counts := make(map[entity.FindingKind]int)
	for _, f := range s {
		if f.Arch == arch {
			counts[f.Kind]++
		}
	}
	return counts
}

// classifyArch применяет правила Кеннеди к находкам одной дуги.
// Порядок проверок задаёт клинический приоритет: IV, I, II, III.
// При одновременном концевом и включённом дефекте класс III не сообщается.
func classifyArch(counts map[entity.FindingKind]int) entity.KennedyClass {
	right := counts[entity.FindingFreeRight] > 0
	left := counts[entity.FindingFreeLeft] > 0

	switch {
	case counts[entity.FindingNotFreeCenter] > 0:
		return entity.KennedyClass{Type: entity.KennedyClassIV}
	case right && left:
		return entity.KennedyClass{Type: entity.KennedyClassI}
	case right:
		return entity.KennedyClass{Type: entity.KennedyClassII, Side: entity.SideRight}
	case left:
		return entity.KennedyClass{Type: entity.KennedyClassII, Side: entity.SideLeft}
	case counts[entity.FindingNotFree] > 0:
		return entity.KennedyClass{Type: entity.KennedyClassIII, Count: counts[entity.FindingNotFree]}
	default:
		return entity.KennedyClass{Type: entity.KennedyUnclassified}
	}
}
