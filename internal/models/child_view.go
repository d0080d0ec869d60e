package models

// FetchKind names one of the collections assembled into a child view
type FetchKind string

const (
	FetchAttendance FetchKind = "attendance"
	FetchFees       FetchKind = "fees"
	FetchMarks      FetchKind = "marks"
	FetchRemarks    FetchKind = "remarks"
	FetchHomework   FetchKind = "homework"
)

// AttendanceViewLimit caps the attendance rows returned in a child view
const AttendanceViewLimit = 30

// AggregatedChildView is assembled per request and never persisted.
// Collections are always non-nil so they serialize as [].
type AggregatedChildView struct {
	Student    Student            `json:"student"`
	Attendance []AttendanceRecord `json:"attendance"`
	Fees       []Fee              `json:"fees"`
	Marks      []Mark             `json:"marks"`
	Remarks    []Remark           `json:"remarks"`
	Homework   []Homework         `json:"homework"`
}

// EmptyChildView returns a view for student with every collection empty
func EmptyChildView(student Student) AggregatedChildView {
	return AggregatedChildView{
		Student:    student,
		Attendance: []AttendanceRecord{},
		Fees:       []Fee{},
		Marks:      []Mark{},
		Remarks:    []Remark{},
		Homework:   []Homework{},
	}
}
