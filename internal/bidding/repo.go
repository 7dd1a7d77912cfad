package bidding

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// WithTx returns a repo bound to a transaction handle so multi-row
// transitions stay inside one atomic scope.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

// --- couriers ---

func (r *Repo) CreateCourier(ctx context.Context, c *Courier) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) CourierByID(ctx context.Context, id uint64) (*Courier, error) {
	var c Courier
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CourierByMobile(ctx context.Context, mobile string) (*Courier, error) {
	var c Courier
	if err := r.db.WithContext(ctx).
		Where("mobile_number = ?", mobile).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) CouriersByDuty(ctx context.Context, duty int) ([]Courier, error) {
	var out []Courier
	if err := r.db.WithContext(ctx).
		Where("duty_status = ?", duty).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SetCourierDuty(ctx context.Context, courierID uint64, duty int) error {
	return r.db.WithContext(ctx).Model(&Courier{}).
		Where("id = ?", courierID).
		Update("duty_status", duty).Error
}

// --- jobs ---

func (r *Repo) CreateJob(ctx context.Context, j *Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *Repo) JobByTag(ctx context.Context, tag string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).
		Where("job_tag = ?", tag).
		First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// --- status log ---

func (r *Repo) CurrentStatus(ctx context.Context, tag string) (*JobStatus, error) {
	var s JobStatus
	if err := r.db.WithContext(ctx).
		Where("job_tag = ? AND expired_ts IS NULL", tag).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ExpireCurrentStatus stamps the live status row. The expired_ts IS NULL
// predicate doubles as an optimistic guard: a concurrent transition that
// got there first leaves zero rows to update, and the caller must roll back.
func (r *Repo) ExpireCurrentStatus(ctx context.Context, tag string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&JobStatus{}).
		Where("job_tag = ? AND expired_ts IS NULL", tag).
		Update("expired_ts", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

func (r *Repo) InsertStatus(ctx context.Context, tag string, status Status, now time.Time) (*JobStatus, error) {
	s := &JobStatus{JobTag: tag, Status: status, WriteTS: now}
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// --- bidding windows ---

func (r *Repo) OpenWindow(ctx context.Context, w *BiddingWindow) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *Repo) WindowByID(ctx context.Context, id uint64) (*BiddingWindow, error) {
	var w BiddingWindow
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repo) OpenWindowForTag(ctx context.Context, tag string) (*BiddingWindow, error) {
	var w BiddingWindow
	if err := r.db.WithContext(ctx).
		Where("job_tag = ? AND close_ts IS NULL", tag).
		First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repo) ListOpenWindows(ctx context.Context) ([]BiddingWindow, error) {
	var out []BiddingWindow
	if err := r.db.WithContext(ctx).
		Where("close_ts IS NULL").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CloseWindow is optimistic in the same way as ExpireCurrentStatus, so two
// sweepers cannot both close (and award) the same window.
func (r *Repo) CloseWindow(ctx context.Context, id uint64, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&BiddingWindow{}).
		Where("id = ? AND close_ts IS NULL", id).
		Update("close_ts", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

// --- bids ---

func (r *Repo) CreateBid(ctx context.Context, b *JobBid) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// ActiveBidForCourier finds the courier's active (not expired, not yet
// accepted) bid for a tag.
func (r *Repo) ActiveBidForCourier(ctx context.Context, courierID uint64, tag string) (*JobBid, error) {
	var b JobBid
	if err := r.db.WithContext(ctx).
		Where("courier_id = ? AND job_tag = ? AND expired_ts IS NULL AND accepted_ts IS NULL", courierID, tag).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// LiveBidForCourier finds the courier's non-expired bid for a tag, accepted
// or not. Acceptance checks use this form.
func (r *Repo) LiveBidForCourier(ctx context.Context, courierID uint64, tag string) (*JobBid, error) {
	var b JobBid
	if err := r.db.WithContext(ctx).
		Where("courier_id = ? AND job_tag = ? AND expired_ts IS NULL", courierID, tag).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) ActiveBidsForTag(ctx context.Context, tag string) ([]JobBid, error) {
	var out []JobBid
	if err := r.db.WithContext(ctx).
		Where("job_tag = ? AND expired_ts IS NULL AND accepted_ts IS NULL", tag).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) MarkBidAccepted(ctx context.Context, bidID uint64, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&JobBid{}).
		Where("id = ? AND accepted_ts IS NULL AND expired_ts IS NULL", bidID).
		Update("accepted_ts", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

// --- assignments ---

func (r *Repo) CreateAssignment(ctx context.Context, a *JobAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repo) AssignmentForCourierAndTag(ctx context.Context, courierID uint64, tag string) (*JobAssignment, error) {
	var a JobAssignment
	if err := r.db.WithContext(ctx).
		Where("courier_id = ? AND job_tag = ?", courierID, tag).
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// LiveAssignmentTags returns the tags of a courier's assignments whose
// current status is accepted or in progress, oldest first.
func (r *Repo) LiveAssignmentTags(ctx context.Context, courierID uint64) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Table("job_assignments").
		Joins("JOIN job_status ON job_status.job_tag = job_assignments.job_tag AND job_status.expired_ts IS NULL").
		Where("job_assignments.courier_id = ? AND job_status.status IN ?", courierID,
			[]Status{StatusAccepted, StatusInProgress}).
		Order("job_assignments.id ASC").
		Pluck("job_assignments.job_tag", &tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// OpenJobTags returns the tags currently open for bidding: status BROADCAST
// with an open window, oldest first.
func (r *Repo) OpenJobTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Table("job_status").
		Joins("JOIN bidding_windows ON bidding_windows.job_tag = job_status.job_tag AND bidding_windows.close_ts IS NULL").
		Where("job_status.expired_ts IS NULL AND job_status.status = ?", StatusBroadcast).
		Order("job_status.id ASC").
		Pluck("job_status.job_tag", &tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// --- handles ---

func (r *Repo) LiveHandle(ctx context.Context, courierID uint64) (*UserHandle, error) {
	var h UserHandle
	if err := r.db.WithContext(ctx).
		Where("courier_id = ? AND expired_ts IS NULL", courierID).
		First(&h).Error; err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *Repo) ExpireLiveHandles(ctx context.Context, courierID uint64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&UserHandle{}).
		Where("courier_id = ? AND expired_ts IS NULL", courierID).
		Update("expired_ts", now).Error
}

func (r *Repo) CreateHandle(ctx context.Context, h *UserHandle) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *Repo) CourierByLiveHandle(ctx context.Context, handle string) (*Courier, error) {
	var h UserHandle
	if err := r.db.WithContext(ctx).
		Where("handle = ? AND expired_ts IS NULL", handle).
		First(&h).Error; err != nil {
		return nil, err
	}
	return r.CourierByID(ctx, h.CourierID)
}

// --- macros ---

func (r *Repo) SaveMacro(ctx context.Context, m *UserMacro) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "courier_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"command_string", "updated_at"}),
		}).
		Create(m).Error
}

func (r *Repo) MacroByName(ctx context.Context, courierID uint64, name string) (*UserMacro, error) {
	var m UserMacro
	if err := r.db.WithContext(ctx).
		Where("courier_id = ? AND name = ?", courierID, name).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) MacroNames(ctx context.Context, courierID uint64) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&UserMacro{}).
		Where("courier_id = ?", courierID).
		Order("name ASC").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// --- message and job logs ---

func (r *Repo) CreateMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) AppendJobLog(ctx context.Context, entry *JobLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repo) JobLogEntries(ctx context.Context, tag string) ([]JobLog, error) {
	var out []JobLog
	if err := r.db.WithContext(ctx).
		Where("job_tag = ?", tag).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
