package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"dental-bot/internal/domain/entity"
)

// dataFile часть YOLO data.yaml, которая нужна боту.
type dataFile struct {
	Names yaml.Node `yaml:"names"`
}

// LoadVocabulary читает имена классов из YOLO data.yaml.
// Пустой путь даёт словарь, на котором обучена модель.
func LoadVocabulary(path string) (entity.Vocabulary, error) {
	if path == "" {
		return entity.DefaultVocabulary(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	return ParseVocabulary(raw)
}

// ParseVocabulary разбирает ключ names в виде списка или словаря "индекс: имя".
func ParseVocabulary(raw []byte) (entity.Vocabulary, error) {
	var df dataFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return nil, fmt.Errorf("parse classes: %w", err)
	}

	var vocab entity.Vocabulary
	switch df.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := df.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("parse names: %w", err)
		}
		for _, n := range names {
			vocab = append(vocab, entity.Label(n))
		}
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := df.Names.Decode(&byIndex); err != nil {
			return nil, fmt.Errorf("parse names: %w", err)
		}
		indexes := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		for pos, i := range indexes {
			if pos != i {
				return nil, fmt.Errorf("parse names: class index %d is missing", pos)
			}
			vocab = append(vocab, entity.Label(byIndex[i]))
		}
	default:
		return nil, errors.New("parse classes: names key is missing")
	}

	if len(vocab) == 0 {
		return nil, errors.New("parse classes: names is empty")
	}
	return vocab, nil
}
