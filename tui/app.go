package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cinebook-cli/booking"
	"cinebook-cli/model"
	"cinebook-cli/store"
)

type appState int

const (
	stateLoadingCinemas appState = iota
	stateSelectCinema
	stateLoadingFilms
	stateSelectFilm
	stateLoadingDates
	stateSelectDate
	stateLoadingSessions
	stateSelectSession
	stateLoadingSeatMap
	stateSeatMap
	stateSubmitting
	stateOrder
	statePaying
	stateTicket
	stateCancelled
	stateError
)

type appModel struct {
	co  *booking.Coordinator
	sub *booking.Subscription

	state     appState
	lastState appState
	errDetail *booking.ErrorDetail
	notice    string

	width  int
	height int

	selection model.SelectionState

	cinemaName  string
	filmTitle   string
	dateLabel   string
	sessionName string

	cinemaList  list.Model
	filmList    list.Model
	dateList    list.Model
	sessionList list.Model
	voucherList list.Model

	matrix          *model.SeatMatrix
	cursorRow       int
	cursorCol       int
	showSeatNumbers bool

	quote    model.PriceQuote
	vouchers []model.Voucher
	order    *model.Order
	ticket   *model.TicketCode

	spinner spinner.Model
}

type eventMsg struct {
	event booking.Event
}

type expiryTickMsg time.Time

// New builds the TUI over an already constructed coordinator.
func New(co *booking.Coordinator) tea.Model {
	m := appModel{
		co:    co,
		sub:   co.Subscribe(booking.EventAll),
		state: stateLoadingCinemas,
	}

	m.cinemaList = newList("Select Cinema")
	m.filmList = newList("Select Film")
	m.dateList = newList("Select Date")
	m.sessionList = newList("Select Session")
	m.voucherList = newList("Vouchers")

	m.showSeatNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitEventCmd(m.sub), startCmd(m.co), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleFilterInput(msg); handled {
			return m, cmd
		}
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.isLoadingState() {
			return m, cmd
		}
		return m, nil

	case eventMsg:
		next, cmd := m.handleEvent(msg.event)
		return next, tea.Batch(waitEventCmd(m.sub), cmd)

	case expiryTickMsg:
		if m.state != stateOrder {
			return m, nil
		}
		return m, tea.Batch(checkExpiryCmd(m.co), expiryTick())
	}

	var cmd tea.Cmd
	switch m.state {
	case stateSelectCinema:
		m.cinemaList, cmd = m.cinemaList.Update(msg)
	case stateSelectFilm:
		m.filmList, cmd = m.filmList.Update(msg)
	case stateSelectDate:
		m.dateList, cmd = m.dateList.Update(msg)
	case stateSelectSession:
		m.sessionList, cmd = m.sessionList.Update(msg)
	case stateOrder:
		m.voucherList, cmd = m.voucherList.Update(msg)
	}
	return m, cmd
}

func (m appModel) handleEvent(e booking.Event) (appModel, tea.Cmd) {
	m.selection = e.Selection

	switch e.Kind {
	case booking.EventSelection:
		return m.handleSelectionEvent(e), nil

	case booking.EventSeatMap:
		m.matrix = e.Matrix
		m.cursorRow, m.cursorCol = firstAvailable(e.Matrix)
		m.quote = model.PriceQuote{}
		m.state = stateSeatMap
		return m, nil

	case booking.EventOrder:
		m.order = e.Order
		if e.Ticket != nil {
			m.ticket = e.Ticket
		}
		switch {
		case e.Phase == booking.PhaseOrderPaid:
			m.state = stateTicket
			return m, nil
		case e.Phase == booking.PhaseCancelled:
			m.state = stateCancelled
			return m, nil
		case e.Order != nil && e.Order.Status == model.OrderExpired:
			m.notice = "Order expired, pick your seats again"
			m.state = stateLoadingSeatMap
			return m, m.spinner.Tick
		case e.Phase == booking.PhaseOrderPending:
			m.voucherList.SetItems(nil)
			m.state = stateOrder
			return m, expiryTick()
		}
		return m, nil

	case booking.EventPrice:
		if e.Quote != nil {
			m.quote = *e.Quote
		}
		if e.Vouchers != nil {
			m.vouchers = e.Vouchers
		}
		m.voucherList.SetItems(buildVoucherItems(m.vouchers, m.co.AppliedVouchers()))
		return m, nil

	case booking.EventError:
		if e.Err == nil {
			return m, nil
		}
		if e.Err.Recoverable {
			m.notice = friendlyError(e.Err)
			// a seat conflict kicks off a seat map refresh; show the load
			if e.Err.Kind == booking.KindSeatConflict {
				m.state = stateLoadingSeatMap
				return m, m.spinner.Tick
			}
			if m.state == stateSubmitting {
				m.state = stateSeatMap
			}
			if m.state == statePaying {
				m.state = stateOrder
			}
			return m, nil
		}
		m.errDetail = e.Err
		m.lastState = m.state
		m.state = stateError
		return m, nil
	}
	return m, nil
}

func (m appModel) handleSelectionEvent(e booking.Event) appModel {
	switch e.Phase {
	case booking.PhaseIdle:
		cinemas := e.Cinemas
		if len(cinemas) == 0 {
			cinemas = m.co.Cinemas()
		}
		if len(cinemas) > 0 {
			recents, _ := store.LoadRecentCinemas()
			m.cinemaList.SetItems(buildCinemaItems(cinemas, recents))
			m.state = stateSelectCinema
		}

	case booking.PhaseCinemaChosen:
		films := e.Films
		if len(films) == 0 {
			films = m.co.Films()
		}
		if len(films) > 0 {
			m.filmList.SetItems(buildFilmItems(films))
			m.state = stateSelectFilm
		} else {
			m.state = stateLoadingFilms
		}

	case booking.PhaseFilmChosen:
		dates := e.Dates
		if len(dates) == 0 {
			dates = m.co.Dates()
		}
		if len(dates) > 0 {
			m.dateList.SetItems(buildDateItems(dates))
			m.state = stateSelectDate
		} else {
			m.state = stateLoadingDates
		}

	case booking.PhaseDateChosen:
		sessions := e.Sessions
		if len(sessions) == 0 {
			sessions = m.co.Sessions()
		}
		if len(sessions) > 0 {
			m.sessionList.SetItems(buildSessionItems(sessions))
			m.state = stateSelectSession
		} else {
			m.state = stateLoadingSessions
		}

	case booking.PhaseSessionChosen:
		m.state = stateLoadingSeatMap

	case booking.PhaseSeatsLoaded, booking.PhaseSeatsPicked:
		if m.state != stateSubmitting {
			m.state = stateSeatMap
		}
	}
	return m
}

func (m appModel) handleKey(msg tea.KeyMsg) (appModel, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.state == stateOrder || m.state == statePaying {
			// leaving mid-order would strand the seat hold
			return m, tea.Sequence(cancelOrderCmd(m.co), tea.Quit), true
		}
		return m, tea.Quit, true
	case "esc":
		if listPtr := m.activeList(); listPtr != nil && listPtr.IsFiltered() {
			listPtr.ResetFilter()
			return m, nil, true
		}
		next := m.goBack()
		return next, nil, true
	case "n":
		if m.state == stateSeatMap {
			m.showSeatNumbers = !m.showSeatNumbers
			return m, nil, true
		}
	case "r":
		if m.state == stateSeatMap {
			m.state = stateLoadingSeatMap
			m.notice = ""
			return m, tea.Batch(refreshSeatMapCmd(m.co), m.spinner.Tick), true
		}
	case "up", "down", "left", "right":
		if m.state == stateSeatMap {
			m.moveCursor(msg.String())
			return m, nil, true
		}
	case " ":
		if m.state == stateSeatMap {
			return m.toggleSeatUnderCursor()
		}
	case "s":
		if m.state == stateSeatMap && m.co.Phase() == booking.PhaseSeatsPicked {
			m.notice = ""
			m.state = stateSubmitting
			return m, tea.Batch(submitOrderCmd(m.co), m.spinner.Tick), true
		}
	case "p":
		if m.state == stateOrder {
			m.notice = ""
			m.state = statePaying
			return m, tea.Batch(payCmd(m.co), m.spinner.Tick), true
		}
	case "c":
		if m.state == stateOrder {
			m.notice = ""
			return m, cancelOrderCmd(m.co), true
		}
	}

	if msg.Type == tea.KeyEnter {
		switch m.state {
		case stateSelectCinema:
			item, ok := m.cinemaList.SelectedItem().(cinemaItem)
			if !ok {
				return m, nil, true
			}
			m.cinemaName = item.cinema.Name
			m.notice = ""
			m.state = stateLoadingFilms
			return m, tea.Batch(selectCinemaCmd(m.co, item.cinema), m.spinner.Tick), true
		case stateSelectFilm:
			item, ok := m.filmList.SelectedItem().(filmItem)
			if !ok {
				return m, nil, true
			}
			m.filmTitle = item.film.Title
			m.state = stateLoadingDates
			return m, tea.Batch(selectFilmCmd(m.co, item.film.Id), m.spinner.Tick), true
		case stateSelectDate:
			item, ok := m.dateList.SelectedItem().(dateItem)
			if !ok {
				return m, nil, true
			}
			m.dateLabel = item.date.Date
			m.state = stateLoadingSessions
			return m, tea.Batch(selectDateCmd(m.co, item.date.Id), m.spinner.Tick), true
		case stateSelectSession:
			item, ok := m.sessionList.SelectedItem().(sessionItem)
			if !ok {
				return m, nil, true
			}
			m.sessionName = item.Title()
			m.state = stateLoadingSeatMap
			return m, tea.Batch(selectSessionCmd(m.co, item.session.Id), m.spinner.Tick), true
		case stateSeatMap:
			return m.toggleSeatUnderCursor()
		case stateOrder:
			item, ok := m.voucherList.SelectedItem().(voucherItem)
			if !ok {
				return m, nil, true
			}
			m.notice = ""
			return m, toggleVoucherCmd(m.co, item.voucher.Code), true
		case stateError:
			m.errDetail = nil
			m.state = m.lastState
			return m, nil, true
		}
	}
	return m, nil, false
}

func (m appModel) toggleSeatUnderCursor() (appModel, tea.Cmd, bool) {
	seat := m.matrix.At(m.cursorRow, m.cursorCol)
	if seat == nil {
		return m, nil, true
	}
	m.notice = ""
	_ = m.co.ToggleSeat(seat.SeatId)
	return m, nil, true
}

func (m *appModel) moveCursor(dir string) {
	if m.matrix == nil {
		return
	}
	row, col := m.cursorRow, m.cursorCol
	switch dir {
	case "up":
		row--
	case "down":
		row++
	case "left":
		col--
	case "right":
		col++
	}
	if row < 1 || row > m.matrix.Rows || col < 1 || col > m.matrix.Cols {
		return
	}
	m.cursorRow, m.cursorCol = row, col
}

func (m appModel) goBack() appModel {
	switch m.state {
	case stateSelectFilm:
		m.state = stateSelectCinema
	case stateSelectDate:
		m.state = stateSelectFilm
	case stateSelectSession:
		m.state = stateSelectDate
	case stateSeatMap:
		m.state = stateSelectSession
	case stateTicket, stateCancelled:
		m.state = stateSelectCinema
	case stateError:
		m.errDetail = nil
		m.state = m.lastState
	}
	return m
}

func (m *appModel) activeList() *list.Model {
	switch m.state {
	case stateSelectCinema:
		return &m.cinemaList
	case stateSelectFilm:
		return &m.filmList
	case stateSelectDate:
		return &m.dateList
	case stateSelectSession:
		return &m.sessionList
	case stateOrder:
		return &m.voucherList
	default:
		return nil
	}
}

// While the active list is capturing filter text, every key belongs to
// the list; otherwise single-letter hotkeys would eat the typed filter.
func (m *appModel) handleFilterInput(msg tea.KeyMsg) (tea.Cmd, bool) {
	listPtr := m.activeList()
	if listPtr == nil || !listPtr.SettingFilter() {
		return nil, false
	}
	updated, cmd := listPtr.Update(msg)
	*listPtr = updated
	return cmd, true
}

func (m appModel) isLoadingState() bool {
	switch m.state {
	case stateLoadingCinemas, stateLoadingFilms, stateLoadingDates,
		stateLoadingSessions, stateLoadingSeatMap, stateSubmitting, statePaying:
		return true
	}
	return false
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 6
	if h < 6 {
		h = 6
	}
	m.cinemaList.SetSize(m.width, h)
	m.filmList.SetSize(m.width, h)
	m.dateList.SetSize(m.width, h)
	m.sessionList.SetSize(m.width, h)
	m.voucherList.SetSize(m.width, h)
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func firstAvailable(matrix *model.SeatMatrix) (int, int) {
	if matrix == nil {
		return 1, 1
	}
	for r := 1; r <= matrix.Rows; r++ {
		for c := 1; c <= matrix.Cols; c++ {
			if seat := matrix.At(r, c); seat != nil && seat.Status == model.SeatAvailable {
				return r, c
			}
		}
	}
	return 1, 1
}

func friendlyError(detail *booking.ErrorDetail) string {
	switch detail.Kind {
	case booking.KindSeatLimitExceeded:
		return "Seat limit reached, deselect a seat first"
	case booking.KindSeatConflict:
		return "Someone took one of your seats, reloading the map"
	case booking.KindVoucherUnavailable:
		return "Vouchers are unavailable right now; you can still pay full price"
	case booking.KindVoucherQuoteFailed:
		return "Could not apply the voucher, price unchanged"
	case booking.KindInsufficientBalance:
		return "Insufficient balance, the order is still reserved"
	case booking.KindSeatMapUnavailable:
		return "No seat map for this session, press r to retry"
	case booking.KindTransient:
		return "Backend hiccup, try again"
	default:
		return detail.Detail
	}
}

// Commands bridging key presses to the coordinator. Coordinator errors
// surface through the event stream, so the returned errors are dropped.

func waitEventCmd(sub *booking.Subscription) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub.Events()
		if !ok {
			return nil
		}
		return eventMsg{event: event}
	}
}

func startCmd(co *booking.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_ = co.Start(context.Background())
		return nil
	}
}

func selectCinemaCmd(co *booking.Coordinator, cinema model.Cinema) tea.Cmd {
	return func() tea.Msg {
		_ = store.RememberCinema(cinema)
		_ = co.SelectCinema(context.Background(), cinema.Id)
		return nil
	}
}

func selectFilmCmd(co *booking.Coordinator, filmID string) tea.Cmd {
	return func() tea.Msg {
		_ = co.SelectFilm(context.Background(), filmID)
		return nil
	}
}

func selectDateCmd(co *booking.Coordinator, dateID string) tea.Cmd {
	return func() tea.Msg {
		_ = co.SelectDate(context.Background(), dateID)
		return nil
	}
}

func selectSessionCmd(co *booking.Coordinator, sessionID string) tea.Cmd {
	return func() tea.Msg {
		_ = co.SelectSession(context.Background(), sessionID)
		return nil
	}
}

func refreshSeatMapCmd(co *booking.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_ = co.RefreshSeatMap(context.Background())
		return nil
	}
}

func submitOrderCmd(co *booking.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_ = co.SubmitOrder(context.Background())
		return nil
	}
}

func toggleVoucherCmd(co *booking.Coordinator, code string) tea.Cmd {
	return func() tea.Msg {
		_ = co.ToggleVoucher(context.Background(), code)
		return nil
	}
}

func payCmd(co *booking.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_ = co.Pay(context.Background())
		return nil
	}
}

func cancelOrderCmd(co *booking.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_ = co.CancelOrder(context.Background())
		return nil
	}
}

func checkExpiryCmd(co *booking.Coordinator) tea.Cmd {
	return func() tea.Msg {
		_ = co.CheckExpiry(context.Background())
		return nil
	}
}

func expiryTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return expiryTickMsg(t)
	})
}
