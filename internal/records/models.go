package records

import "time"

// User is an employee profile served by the user service.
type User struct {
	UserID     int    `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	Name       string `gorm:"column:name;not null" json:"name"`
	Email      string `gorm:"column:email;uniqueIndex" json:"email"`
	Department string `gorm:"column:department" json:"department"`
	Status     string `gorm:"column:status" json:"status"`
}

// TableName pins the table name.
func (User) TableName() string { return "users" }

// Attendance is one day of attendance for a user.
type Attendance struct {
	ID      uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID  int       `gorm:"column:user_id;index:idx_attendance_user_month" json:"user_id"`
	Month   string    `gorm:"column:month;index:idx_attendance_user_month" json:"month"`
	Date    time.Time `gorm:"column:date" json:"date"`
	Status  string    `gorm:"column:status" json:"status"`
	CheckIn string    `gorm:"column:check_in" json:"check_in,omitempty"`
}

// TableName pins the table name.
func (Attendance) TableName() string { return "attendance" }

// Leave is a leave request.
type Leave struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID    int       `gorm:"column:user_id;index" json:"user_id"`
	LeaveType string    `gorm:"column:leave_type" json:"leave_type"`
	StartDate time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date" json:"end_date"`
	Status    string    `gorm:"column:status" json:"status"`
	Reason    string    `gorm:"column:reason" json:"reason,omitempty"`
}

// TableName pins the table name.
func (Leave) TableName() string { return "leaves" }

// UserView is the user service response.
type UserView struct {
	UserID     int    `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

// AttendanceView is the attendance service response.
type AttendanceView struct {
	UserID       int          `json:"user_id"`
	Month        string       `json:"month"`
	Records      []Attendance `json:"records"`
	TotalRecords int          `json:"totalRecords"`
}

// LeaveHistoryView is the leave history service response.
type LeaveHistoryView struct {
	UserID      int     `json:"user_id"`
	Records     []Leave `json:"records"`
	TotalLeaves int     `json:"totalLeaves"`
}
