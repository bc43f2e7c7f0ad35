package service

import "pizzeria-service/internal/domain"

const (
	DefaultCatalogPerPage = 12
	DefaultOrdersPerPage  = 10
	MaxPerPage            = 50
)

// NormalizePage приводит номер страницы к >= 1, а размер к 1..MaxPerPage.
// Нулевой размер заменяется значением по умолчанию.
func NormalizePage(page domain.Page, defaultPerPage int) domain.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	switch {
	case page.PerSize <= 0:
		page.PerSize = defaultPerPage
	case page.PerSize > MaxPerPage:
		page.PerSize = MaxPerPage
	}
	return page
}
