package bidding

import "time"

const (
	DutyOff = 0
	DutyOn  = 1
)

type Courier struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string    `gorm:"type:varchar(64);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(64);not null" json:"last_name"`
	MobileNumber string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"mobile_number"`
	Email        string    `gorm:"type:varchar(128)" json:"email"`
	DutyStatus   int       `gorm:"not null;default:0;index" json:"duty_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Courier) TableName() string { return "fact_couriers" }

// Job is immutable once created; lifecycle state lives in JobStatus rows.
type Job struct {
	ID string `gorm:"primaryKey;size:26" json:"id"` // ULID length

	JobTag string `gorm:"type:varchar(64);uniqueIndex;not null" json:"job_tag"`

	PickupAddress        string `gorm:"type:varchar(255);not null" json:"pickup_address"`
	PickupBorough        string `gorm:"type:varchar(32);not null" json:"pickup_borough"`
	PickupNeighborhood   string `gorm:"type:varchar(64)" json:"pickup_neighborhood"`
	PickupZip            string `gorm:"type:varchar(10);not null" json:"pickup_zip"`
	DeliveryAddress      string `gorm:"type:varchar(255);not null" json:"delivery_address"`
	DeliveryBorough      string `gorm:"type:varchar(32);not null" json:"delivery_borough"`
	DeliveryNeighborhood string `gorm:"type:varchar(64)" json:"delivery_neighborhood"`
	DeliveryZip          string `gorm:"type:varchar(10);not null" json:"delivery_zip"`
	PaymentMethod        string `gorm:"type:varchar(32);not null" json:"payment_method"`
	Items                string `gorm:"type:text;not null" json:"items"`

	CreatedAt time.Time `json:"created_at"`
}

func (Job) TableName() string { return "jobs" }

type Status int

const (
	StatusBroadcast  Status = 0
	StatusAwarded    Status = 1
	StatusAccepted   Status = 3
	StatusInProgress Status = 4
	StatusCompleted  Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusBroadcast:
		return "broadcast"
	case StatusAwarded:
		return "awarded"
	case StatusAccepted:
		return "accepted"
	case StatusInProgress:
		return "in progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// JobStatus is an append-only log. Exactly one row per job_tag has a null
// expired_ts; that row is the job's current status.
type JobStatus struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobTag    string     `gorm:"type:varchar(64);index;not null" json:"job_tag"`
	Status    Status     `gorm:"not null" json:"status"`
	WriteTS   time.Time  `gorm:"column:write_ts;not null" json:"write_ts"`
	ExpiredTS *time.Time `gorm:"column:expired_ts;index" json:"expired_ts"`
}

func (JobStatus) TableName() string { return "job_status" }

const (
	LimitTypeTimeSeconds = "time_seconds"
	LimitTypeNumBids     = "num_bids"
)

// BiddingWindow is open while close_ts is null. At most one open window
// exists per job_tag.
type BiddingWindow struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JobTag    string     `gorm:"type:varchar(64);index;not null" json:"job_tag"`
	OpenTS    time.Time  `gorm:"column:open_ts;not null" json:"open_ts"`
	CloseTS   *time.Time `gorm:"column:close_ts;index" json:"close_ts"`
	LimitType string     `gorm:"type:varchar(16);not null" json:"limit_type"`
	Limit     int        `gorm:"column:limit_value;not null" json:"limit"`
}

func (BiddingWindow) TableName() string { return "bidding_windows" }

// JobBid is active while both accepted_ts and expired_ts are null. A courier
// holds at most one active bid per job_tag.
type JobBid struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BiddingWindowID uint64     `gorm:"index;not null" json:"bidding_window_id"`
	CourierID       uint64     `gorm:"index;not null" json:"courier_id"`
	JobTag          string     `gorm:"type:varchar(64);index;not null" json:"job_tag"`
	WriteTS         time.Time  `gorm:"column:write_ts;not null" json:"write_ts"`
	AcceptedTS      *time.Time `gorm:"column:accepted_ts" json:"accepted_ts"`
	ExpiredTS       *time.Time `gorm:"column:expired_ts" json:"expired_ts"`
}

func (JobBid) TableName() string { return "job_bids" }

// JobAssignment links a courier to a job they have committed to perform.
// Created exactly once, on acceptance.
type JobAssignment struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CourierID uint64    `gorm:"index;not null" json:"courier_id"`
	JobID     string    `gorm:"size:26;not null" json:"job_id"`
	JobTag    string    `gorm:"type:varchar(64);index;not null" json:"job_tag"`
	CreatedAt time.Time `json:"created_at"`
}

func (JobAssignment) TableName() string { return "job_assignments" }

// UserHandle is a courier's public alias. At most one live (expired_ts null)
// handle exists per courier.
type UserHandle struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CourierID uint64     `gorm:"index;not null" json:"courier_id"`
	Handle    string     `gorm:"type:varchar(64);index;not null" json:"handle"`
	CreatedTS time.Time  `gorm:"column:created_ts;not null" json:"created_ts"`
	ExpiredTS *time.Time `gorm:"column:expired_ts" json:"expired_ts"`
}

func (UserHandle) TableName() string { return "user_handles" }

// UserMacro is a courier-scoped named command template.
type UserMacro struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CourierID     uint64    `gorm:"not null;index:idx_macro_courier_name,unique,priority:1" json:"courier_id"`
	Name          string    `gorm:"type:varchar(64);not null;index:idx_macro_courier_name,unique,priority:2" json:"name"`
	CommandString string    `gorm:"type:text;not null" json:"command_string"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UserMacro) TableName() string { return "user_macros" }

// Message is a one-way log entry between couriers.
type Message struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FromCourierID uint64    `gorm:"index;not null" json:"from_courier_id"`
	ToCourierID   uint64    `gorm:"index;not null" json:"to_courier_id"`
	MimeType      string    `gorm:"type:varchar(32);not null" json:"mime_type"`
	MsgData       string    `gorm:"type:text;not null" json:"msg_data"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Message) TableName() string { return "user_messages" }

// JobLog holds free-text operational notes about a job.
type JobLog struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	JobTag    string    `gorm:"type:varchar(64);index;not null" json:"job_tag"`
	LogText   string    `gorm:"type:text;not null" json:"log_text"`
	CreatedAt time.Time `json:"created_at"`
}

func (JobLog) TableName() string { return "job_log" }

// Entities lists every table the dispatch core owns, in migration order.
func Entities() []any {
	return []any{
		&Courier{},
		&Job{},
		&JobStatus{},
		&BiddingWindow{},
		&JobBid{},
		&JobAssignment{},
		&UserHandle{},
		&UserMacro{},
		&Message{},
		&JobLog{},
	}
}
