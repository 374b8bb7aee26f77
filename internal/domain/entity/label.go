package entity

import "fmt"

// Label метка класса, найденного детектором на панорамном снимке.
type Label string

const (
	LabelBrokenRoot        Label = "Broken_Root"
	LabelPCT               Label = "PCT"
	LabelFreeRightMax      Label = "Free_R_Max"
	LabelFreeLeftMax       Label = "Free_L_Max"
	LabelNotFreeMax        Label = "Not_Free_Max"
	LabelNotFreeCenterMax  Label = "Not_Free_Center_Max"
	LabelFreeRightMand     Label = "Free_R_Mand"
	LabelFreeLeftMand      Label = "Free_L_Mand"
	LabelNotFreeMand       Label = "Not_Free_Mand"
	LabelNotFreeCenterMand Label = "Not_Free_Center_Mand"
)

// UnknownLabel возвращает метку для индекса класса вне словаря.
func UnknownLabel(index int) Label {
	return Label(fmt.Sprintf("Unknown(%d)", index))
}

// FindingKind тип находки
type FindingKind int

const (
	FindingBrokenRoot    FindingKind = iota + 1 // Сломанный корень
	FindingPCT                                  // Пародонтально скомпрометированный зуб
	FindingFreeRight                            // Концевой дефект справа
	FindingFreeLeft                             // Концевой дефект слева
	FindingNotFree                              // Включённый дефект
	FindingNotFreeCenter                        // Передний дефект через среднюю линию
)

// Arch зубная дуга
type Arch int

const (
	ArchNone Arch = iota
	ArchMaxillary
	ArchMandibular
)

// Name возвращает отображаемое имя дуги.
func (a Arch) Name() string {
	switch a {
	case ArchMaxillary:
		return "Maxillary"
	case ArchMandibular:
		return "Mandibular"
	default:
		return ""
	}
}

// Arches дуги в порядке вывода отчёта.
var Arches = []Arch{ArchMaxillary, ArchMandibular}

// Finding находка, полученная из метки при разборе.
type Finding struct {
	Kind FindingKind
	Arch Arch // ArchNone для находок вне дуг
}

// FindingTable сопоставляет метку и находку.
type FindingTable map[Label]Finding

// DefaultFindingTable возвращает таблицу для всех меток словаря по умолчанию.
func DefaultFindingTable() FindingTable {
	return FindingTable{
		LabelBrokenRoot:        {Kind: FindingBrokenRoot},
		LabelPCT:               {Kind: FindingPCT},
		LabelFreeRightMax:      {Kind: FindingFreeRight, Arch: ArchMaxillary},
		LabelFreeLeftMax:       {Kind: FindingFreeLeft, Arch: ArchMaxillary},
		LabelNotFreeMax:        {Kind: FindingNotFree, Arch: ArchMaxillary},
		LabelNotFreeCenterMax:  {Kind: FindingNotFreeCenter, Arch: ArchMaxillary},
		LabelFreeRightMand:     {Kind: FindingFreeRight, Arch: ArchMandibular},
		LabelFreeLeftMand:      {Kind: FindingFreeLeft, Arch: ArchMandibular},
		LabelNotFreeMand:       {Kind: FindingNotFree, Arch: ArchMandibular},
		LabelNotFreeCenterMand: {Kind: FindingNotFreeCenter, Arch: ArchMandibular},
	}
}

// Lookup возвращает находку для метки. Неизвестные метки не распознаются.
func (t FindingTable) Lookup(label Label) (Finding, bool) {
	f, ok := t[label]
	return f, ok
}

// Vocabulary упорядоченный словарь классов детектора: индекс класса -> метка.
type Vocabulary []Label

// DefaultVocabulary возвращает словарь, на котором обучена модель.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		LabelBrokenRoot,
		LabelPCT,
		LabelFreeRightMax,
		LabelFreeLeftMax,
		LabelNotFreeMax,
		LabelNotFreeCenterMax,
		LabelFreeRightMand,
		LabelFreeLeftMand,
		LabelNotFreeMand,
		LabelNotFreeCenterMand,
	}
}

// Resolve возвращает метку по индексу класса.
func (v Vocabulary) Resolve(index int) Label {
	if index < 0 || index >= len(v) {
		return UnknownLabel(index)
	}
	return v[index]
}
