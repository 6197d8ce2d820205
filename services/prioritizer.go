package services

import (
	"sort"

	"github.com/yeremiapane/waiter-dashboard/models"
)

// Prioritize -> meja dengan entry pending di depan, urutan relatif tetap
func Prioritize(tables []models.Table) []models.Table {
	out := make([]models.Table, len(tables))
	copy(out, tables)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HasPending && !out[j].HasPending
	})
	return out
}
