package model

import "strings"

// Category — категория медицинского документа (медицинское направление).
type Category string

const (
	// CategoryCardiology — кардиология
	CategoryCardiology Category = "Cardiology"
	// CategoryPediatrics — педиатрия
	CategoryPediatrics Category = "Pediatrics"
	// CategoryNeurology — неврология
	CategoryNeurology Category = "Neurology"
	// CategoryOncology — онкология
	CategoryOncology Category = "Oncology"
	// CategoryRadiology — лучевая диагностика
	CategoryRadiology Category = "Radiology"
	// CategoryOrthopedics — ортопедия
	CategoryOrthopedics Category = "Orthopedics"
	// CategoryLaboratory — лабораторные исследования
	CategoryLaboratory Category = "Laboratory"
	// CategoryGeneral — общая медицина, категория по умолчанию
	CategoryGeneral Category = "General Medicine"
)

// Categories возвращает полный набор категорий.
// Порядок фиксированный: он же используется в подсказке модели классификации.
func Categories() []Category {
	return []Category{
		CategoryCardiology,
		CategoryPediatrics,
		CategoryNeurology,
		CategoryOncology,
		CategoryRadiology,
		CategoryOrthopedics,
		CategoryLaboratory,
		CategoryGeneral,
	}
}

// ParseCategory нормализует произвольную строку до категории из набора.
// Сравнение без учёта регистра и крайних пробелов. Возвращает false,
// если строка не соответствует ни одной категории.
func ParseCategory(s string) (Category, bool) {
	norm := strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(norm, string(c)) {
			return c, true
		}
	}
	return "", false
}
