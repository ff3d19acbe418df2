package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cinebook-cli/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	crumbStyle = lipgloss.NewStyle().Faint(true)
	hintStyle  = lipgloss.NewStyle().Faint(true)

	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

	seatFreeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	seatSoldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	seatDeadStyle   = lipgloss.NewStyle().Faint(true)
	seatPickedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	cursorStyle     = lipgloss.NewStyle().Reverse(true)

	priceStyle  = lipgloss.NewStyle().Bold(true)
	ticketStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 3).
			Foreground(lipgloss.Color("2"))
)

func (m appModel) View() string {
	var body string
	switch m.state {
	case stateLoadingCinemas:
		body = m.loadingView("Loading cinemas")
	case stateSelectCinema:
		body = m.cinemaList.View()
	case stateLoadingFilms:
		body = m.loadingView("Loading films")
	case stateSelectFilm:
		body = m.filmList.View()
	case stateLoadingDates:
		body = m.loadingView("Loading dates")
	case stateSelectDate:
		body = m.dateList.View()
	case stateLoadingSessions:
		body = m.loadingView("Loading sessions")
	case stateSelectSession:
		body = m.sessionList.View()
	case stateLoadingSeatMap:
		body = m.loadingView("Loading seat map")
	case stateSeatMap:
		body = m.seatMapView()
	case stateSubmitting:
		body = m.loadingView("Reserving seats")
	case stateOrder:
		body = m.orderView()
	case statePaying:
		body = m.loadingView("Processing payment")
	case stateTicket:
		body = m.ticketView()
	case stateCancelled:
		body = m.cancelledView()
	case stateError:
		body = m.errorView()
	}

	sections := []string{m.headerView(), body}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	sections = append(sections, m.hintView())
	return strings.Join(sections, "\n")
}

func (m appModel) headerView() string {
	crumbs := []string{}
	if m.cinemaName != "" && m.selection.CinemaId != "" {
		crumbs = append(crumbs, m.cinemaName)
	}
	if m.filmTitle != "" && m.selection.FilmId != "" {
		crumbs = append(crumbs, m.filmTitle)
	}
	if m.dateLabel != "" && m.selection.DateId != "" {
		crumbs = append(crumbs, m.dateLabel)
	}
	if m.sessionName != "" && m.selection.SessionId != "" {
		crumbs = append(crumbs, m.sessionName)
	}

	header := titleStyle.Render("🎬 CineBook")
	if len(crumbs) > 0 {
		header += "  " + crumbStyle.Render(strings.Join(crumbs, " › "))
	}
	return header
}

func (m appModel) hintView() string {
	switch m.state {
	case stateSelectCinema, stateSelectFilm, stateSelectDate, stateSelectSession:
		return hintStyle.Render("↑/↓ navigate • enter select • / filter • esc back • q quit")
	case stateSeatMap:
		return hintStyle.Render("arrows move • space toggle • s reserve • r reload • n numbers • esc back • q quit")
	case stateOrder:
		return hintStyle.Render("↑/↓ vouchers • enter apply/remove • p pay • c cancel • q quit")
	case stateTicket, stateCancelled:
		return hintStyle.Render("esc new booking • q quit")
	case stateError:
		return hintStyle.Render("enter/esc back • q quit")
	default:
		return ""
	}
}

func (m appModel) loadingView(label string) string {
	return fmt.Sprintf("\n  %s %s...\n", m.spinner.View(), label)
}

func (m appModel) seatMapView() string {
	if m.matrix == nil {
		return "\n  No seat map loaded.\n"
	}

	picked := make(map[string]bool, len(m.selection.SeatIds))
	for _, id := range m.selection.SeatIds {
		picked[id] = true
	}

	var b strings.Builder
	b.WriteString("\n")
	for r := 1; r <= m.matrix.Rows; r++ {
		b.WriteString(fmt.Sprintf("  %2d ", r))
		for c := 1; c <= m.matrix.Cols; c++ {
			b.WriteString(m.renderSeat(r, c, picked))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(seatFreeStyle.Render("· free"))
	b.WriteString("  ")
	b.WriteString(seatPickedStyle.Render("● yours"))
	b.WriteString("  ")
	b.WriteString(seatSoldStyle.Render("× taken"))
	b.WriteString("\n")

	if len(m.selection.SeatIds) > 0 {
		b.WriteString(fmt.Sprintf("\n  %d seat(s) selected", len(m.selection.SeatIds)))
		if m.quote.BasePrice > 0 {
			b.WriteString(priceStyle.Render(fmt.Sprintf(" • R$ %.2f", m.quote.BasePrice)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m appModel) renderSeat(row, col int, picked map[string]bool) string {
	seat := m.matrix.At(row, col)

	var cell string
	switch {
	case seat == nil:
		cell = " "
		if m.showSeatNumbers {
			cell = "  "
		}
	case picked[seat.SeatId]:
		cell = seatPickedStyle.Render(seatGlyph(seat, "●", m.showSeatNumbers))
	case seat.Status == model.SeatAvailable:
		cell = seatFreeStyle.Render(seatGlyph(seat, "·", m.showSeatNumbers))
	case seat.Status == model.SeatSold:
		cell = seatSoldStyle.Render(seatGlyph(seat, "×", m.showSeatNumbers))
	default:
		cell = seatDeadStyle.Render(seatGlyph(seat, "-", m.showSeatNumbers))
	}

	if row == m.cursorRow && col == m.cursorCol {
		return cursorStyle.Render(cell)
	}
	return cell
}

func seatGlyph(seat *model.Seat, glyph string, numbered bool) string {
	if !numbered {
		return glyph
	}
	if seat.Label != "" {
		return fmt.Sprintf("%2s", seat.Label)
	}
	return fmt.Sprintf("%2d", seat.Column)
}

func (m appModel) orderView() string {
	var b strings.Builder
	b.WriteString("\n  Order reserved")
	if m.order != nil {
		b.WriteString(fmt.Sprintf(" • %d seat(s)", len(m.order.SeatIds)))
		if remaining := time.Until(m.order.ExpiresAt); remaining > 0 {
			b.WriteString(fmt.Sprintf(" • expires in %s", remaining.Round(time.Second)))
		}
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Base price:  R$ %.2f\n", m.quote.BasePrice))
	for _, code := range m.quote.AppliedVoucherCodes {
		b.WriteString(fmt.Sprintf("  Voucher:     %s\n", code))
	}
	b.WriteString(priceStyle.Render(fmt.Sprintf("  Total due:   R$ %.2f", m.quote.DiscountedTotal)))
	b.WriteString("\n\n")

	if len(m.voucherList.Items()) > 0 {
		b.WriteString(m.voucherList.View())
	} else {
		b.WriteString(hintStyle.Render("  No vouchers available."))
	}
	return b.String()
}

func (m appModel) ticketView() string {
	var b strings.Builder
	b.WriteString("\n  Payment confirmed! 🎟\n\n")
	if m.ticket != nil {
		b.WriteString("  " + ticketStyle.Render(m.ticket.Code) + "\n")
	} else {
		b.WriteString(noticeStyle.Render("  Ticket code not available yet; check your orders later.\n"))
	}
	if m.order != nil {
		b.WriteString(fmt.Sprintf("\n  Paid R$ %.2f for %d seat(s).\n", m.quote.DiscountedTotal, len(m.order.SeatIds)))
	}
	return b.String()
}

func (m appModel) cancelledView() string {
	return "\n  Order cancelled. Your seats were released.\n"
}

func (m appModel) errorView() string {
	if m.errDetail == nil {
		return "\n  Unknown error.\n"
	}
	return fmt.Sprintf("\n  %s\n\n  %s\n",
		errStyle.Render("Something went wrong"),
		m.errDetail.Detail)
}
