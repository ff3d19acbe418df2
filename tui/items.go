package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"cinebook-cli/model"
	"cinebook-cli/store"
)

type cinemaItem struct {
	cinema model.Cinema
	recent bool
}

func (i cinemaItem) Title() string {
	if i.recent {
		return i.cinema.Name + " •"
	}
	return i.cinema.Name
}
func (i cinemaItem) Description() string { return i.cinema.City }
func (i cinemaItem) FilterValue() string { return strings.ToLower(i.cinema.Name) }

type filmItem struct {
	film model.Film
}

func (i filmItem) Title() string { return i.film.Title }
func (i filmItem) Description() string {
	parts := []string{}
	if i.film.ContentRating != "" {
		parts = append(parts, i.film.ContentRating)
	}
	if i.film.Duration != "" {
		parts = append(parts, i.film.Duration)
	}
	return strings.Join(parts, " • ")
}
func (i filmItem) FilterValue() string { return strings.ToLower(i.film.Title) }

type dateItem struct {
	date model.ShowDate
}

func (i dateItem) Title() string { return i.date.Date }
func (i dateItem) Description() string {
	if i.date.IsToday {
		return i.date.DayOfWeek + " (today)"
	}
	return i.date.DayOfWeek
}
func (i dateItem) FilterValue() string { return strings.ToLower(i.date.Date + " " + i.date.DayOfWeek) }

type sessionItem struct {
	session model.Session
}

func (i sessionItem) Title() string {
	title := i.session.StartsAt.Format("15:04")
	if i.session.Hall != "" {
		title += " • " + i.session.Hall
	}
	return title
}
func (i sessionItem) Description() string {
	desc := fmt.Sprintf("R$ %.2f", i.session.Price)
	if len(i.session.Type) > 0 {
		desc += " • " + strings.Join(i.session.Type, ", ")
	}
	return desc
}
func (i sessionItem) FilterValue() string {
	return strings.ToLower(i.session.StartsAt.Format("15:04") + " " + i.session.Hall)
}

type voucherItem struct {
	voucher model.Voucher
	applied bool
}

func (i voucherItem) Title() string {
	if i.applied {
		return i.voucher.Name + " ✓"
	}
	return i.voucher.Name
}
func (i voucherItem) Description() string {
	return fmt.Sprintf("%s • expires %s", i.voucher.Code, i.voucher.ExpiresAt.Format(time.DateOnly))
}
func (i voucherItem) FilterValue() string { return strings.ToLower(i.voucher.Name) }

func buildCinemaItems(cinemas []model.Cinema, recents []store.RecentCinema) []list.Item {
	recentIDs := make(map[string]bool, len(recents))
	for _, r := range recents {
		if r.ID != "" {
			recentIDs[r.ID] = true
		}
	}

	var front, rest []list.Item
	for _, cinema := range cinemas {
		item := cinemaItem{cinema: cinema, recent: recentIDs[cinema.Id]}
		if item.recent {
			front = append(front, item)
		} else {
			rest = append(rest, item)
		}
	}
	return append(front, rest...)
}

func buildFilmItems(films []model.Film) []list.Item {
	items := make([]list.Item, 0, len(films))
	for _, film := range films {
		items = append(items, filmItem{film: film})
	}
	return items
}

func buildDateItems(dates []model.ShowDate) []list.Item {
	items := make([]list.Item, 0, len(dates))
	for _, date := range dates {
		items = append(items, dateItem{date: date})
	}
	return items
}

func buildSessionItems(sessions []model.Session) []list.Item {
	items := make([]list.Item, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, sessionItem{session: session})
	}
	return items
}

func buildVoucherItems(vouchers []model.Voucher, applied []string) []list.Item {
	appliedSet := make(map[string]bool, len(applied))
	for _, code := range applied {
		appliedSet[code] = true
	}
	items := make([]list.Item, 0, len(vouchers))
	for _, voucher := range vouchers {
		items = append(items, voucherItem{voucher: voucher, applied: appliedSet[voucher.Code]})
	}
	return items
}
