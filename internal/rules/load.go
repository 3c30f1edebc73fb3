package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads rule tables from a YAML file.
// If the file does not exist, the default tables are returned (not an error).
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	return Parse(data)
}

// Parse builds rule tables from YAML content.
func Parse(data []byte) (*Tables, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	return New(spec)
}

// Default returns the built-in rule tables.
func Default() *Tables {
	t, err := New(DefaultSpec())
	if err != nil {
		panic(fmt.Sprintf("default rule tables are invalid: %v", err))
	}
	return t
}

// DefaultSpec returns the built-in table definitions.
func DefaultSpec() Spec {
	return Spec{
		Categories: []CategoryRow{
			{Sources: []string{"music"}, Name: "Музыка"},
			{Sources: []string{"movies"}, Name: "Кино"},
		},
		Countries: []CountryRow{
			{Code: "ru", Name: "Россия"},
			{Code: "ua", Name: "Украина"},
			{Code: "by", Name: "Беларусь"},
			{Code: "kz", Name: "Казахстан"},
			{Code: "us", Name: "США"},
			{Code: "gb", Name: "Великобритания"},
			{Code: "de", Name: "Германия"},
			{Code: "fr", Name: "Франция"},
			{Code: "it", Name: "Италия"},
			{Code: "es", Name: "Испания"},
			{Code: "tr", Name: "Турция"},
			{Code: "pl", Name: "Польша"},
			{Code: "nl", Name: "Нидерланды"},
			{Code: "be", Name: "Бельгия"},
			{Code: "ca", Name: "Канада"},
			{Code: "au", Name: "Австралия"},
			{Code: "il", Name: "Израиль"},
			{Code: "pt", Name: "Португалия"},
			{Code: "gr", Name: "Греция"},
			{Code: "cz", Name: "Чехия"},
			{Code: "hu", Name: "Венгрия"},
			{Code: "ro", Name: "Румыния"},
			{Code: "bg", Name: "Болгария"},
			{Code: "at", Name: "Австрия"},
			{Code: "ch", Name: "Швейцария"},
			{Code: "se", Name: "Швеция"},
			{Code: "no", Name: "Норвегия"},
			{Code: "fi", Name: "Финляндия"},
			{Code: "dk", Name: "Дания"},
			{Code: "ie", Name: "Ирландия"},
			{Code: "br", Name: "Бразилия"},
			{Code: "ar", Name: "Аргентина"},
			{Code: "cl", Name: "Чили"},
			{Code: "co", Name: "Колумбия"},
			{Code: "mx", Name: "Мексика"},
			{Code: "cn", Name: "Китай"},
			{Code: "jp", Name: "Япония"},
			{Code: "kr", Name: "Южная Корея"},
			{Code: "in", Name: "Индия"},
			{Code: "sa", Name: "Саудовская Аравия"},
			{Code: "ae", Name: "ОАЭ"},
			{Code: "eg", Name: "Египет"},
			{Code: "za", Name: "ЮАР"},
		},
	}
}
