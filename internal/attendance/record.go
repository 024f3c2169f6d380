package attendance

import (
	"sort"
	"strings"
	"time"
)

// Status of an attendance row.
type Status string

const (
	StatusPresent    Status = "present"
	StatusAbsent     Status = "absent"
	StatusLate       Status = "late"
	StatusEarlyLeave Status = "early_leave"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPresent, StatusLate, StatusAbsent, StatusEarlyLeave}

// Record is one row of the attendance table.
type Record struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName"`
	CheckIn      string  `json:"checkIn,omitempty"`
	CheckOut     string  `json:"checkOut,omitempty"`
	Date         string  `json:"date"`
	Status       Status  `json:"status"`
	WorkingHours float64 `json:"workingHours"`
	Department   string  `json:"department"`
}

// Filter narrows the table. Empty or "all" Status and Department match
// everything; Search matches name or employee id, case-insensitively.
type Filter struct {
	Search     string
	Status     string
	Department string
}

func (f Filter) matches(r Record) bool {
	if q := strings.ToLower(f.Search); q != "" {
		if !strings.Contains(strings.ToLower(r.EmployeeName), q) &&
			!strings.Contains(strings.ToLower(r.EmployeeID), q) {
			return false
		}
	}
	if f.Status != "" && f.Status != "all" && string(r.Status) != f.Status {
		return false
	}
	if f.Department != "" && f.Department != "all" && r.Department != f.Department {
		return false
	}
	return true
}

// Apply returns the rows matching f, in input order.
func (f Filter) Apply(rows []Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if f.matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts rows per status.
type Summary map[Status]int

// Summarize counts rows per status; every known status is present.
func Summarize(rows []Record) Summary {
	s := make(Summary, len(Statuses))
	for _, st := range Statuses {
		s[st] = 0
	}
	for _, r := range rows {
		s[r.Status]++
	}
	return s
}

// Departments lists the distinct departments in first-seen order.
func Departments(rows []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if !seen[r.Department] {
			seen[r.Department] = true
			out = append(out, r.Department)
		}
	}
	return out
}

// Table is the read-only set of rows shown on the dashboard.
type Table struct {
	rows []Record
}

// NewTable wraps rows, sorted by employee id.
func NewTable(rows []Record) *Table {
	cp := append([]Record(nil), rows...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].EmployeeID < cp[j].EmployeeID })
	return &Table{rows: cp}
}

// List applies f to the table.
func (t *Table) List(f Filter) []Record {
	return f.Apply(t.rows)
}

// Departments lists departments present in the table.
func (t *Table) Departments() []string {
	return Departments(t.rows)
}

// Stats are the headline dashboard figures.
type Stats struct {
	TotalEmployees int     `json:"totalEmployees"`
	PresentToday   int     `json:"presentToday"`
	AverageHours   float64 `json:"averageHours"`
	LateArrivals   int     `json:"lateArrivals"`
}

// DemoStats are the fixed dashboard figures.
var DemoStats = Stats{TotalEmployees: 24, PresentToday: 18, AverageHours: 8.2, LateArrivals: 3}

// Demo returns the seed rows dated on day.
func Demo(day time.Time) []Record {
	date := day.Format("2006-01-02")
	return []Record{
		{ID: "1", EmployeeID: "EMP001", EmployeeName: "Alex Morgan", CheckIn: "09:00", CheckOut: "17:30", Date: date, Status: StatusPresent, WorkingHours: 8.5, Department: "IT"},
		{ID: "2", EmployeeID: "EMP002", EmployeeName: "Sarah Chen", CheckIn: "08:45", CheckOut: "17:15", Date: date, Status: StatusPresent, WorkingHours: 8.5, Department: "HR"},
		{ID: "3", EmployeeID: "EMP003", EmployeeName: "Michael Rodriguez", CheckIn: "09:15", Date: date, Status: StatusLate, WorkingHours: 0, Department: "Engineering"},
		{ID: "4", EmployeeID: "EMP004", EmployeeName: "Emma Wilson", CheckIn: "08:30", CheckOut: "16:45", Date: date, Status: StatusEarlyLeave, WorkingHours: 8.25, Department: "Design"},
	}
}
