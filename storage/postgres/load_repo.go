package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"freightdispatch/pkg/apperrors"
	"freightdispatch/pkg/logger"
	"freightdispatch/pkg/models"
	"freightdispatch/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type loadRepo struct {
	db       *pgxpool.Pool
	log      logger.ILogger
	notifier storage.IChangeNotifier
}

func NewLoadRepo(db *pgxpool.Pool, log logger.ILogger, notifier storage.IChangeNotifier) storage.ILoadStorage {
	return &loadRepo{db: db, log: log, notifier: notifier}
}

const loadFields = `id, load_number, commodity, weight_lbs, equipment_type, rate::text,
	pickup_date, delivery_date, actual_pickup_time, actual_delivery_time,
	driver_id, vehicle_id, status, version, created_at, updated_at`

func scanLoadRow(row pgx.Row) (*models.Load, error) {
	var l models.Load
	var rate, status string
	err := row.Scan(
		&l.ID, &l.LoadNumber, &l.Commodity, &l.WeightLbs, &l.EquipmentType, &rate,
		&l.PickupDate, &l.DeliveryDate, &l.ActualPickupTime, &l.ActualDeliveryTime,
		&l.DriverID, &l.VehicleID, &status, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = models.LoadStatus(status)
	l.Rate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loadRepo) getLoad(ctx context.Context, q querier, id string, forUpdate bool) (*models.Load, error) {
	query := `SELECT ` + loadFields + ` FROM loads WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanLoadRow(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		r.log.Error("failed to get load", logger.String("load_id", id), logger.Error(err))
		return nil, apperrors.Storage(err)
	}
	if err := r.attachDetails(ctx, q, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *loadRepo) attachDetails(ctx context.Context, q querier, l *models.Load) error {
	rows, err := q.Query(ctx, `
		SELECT load_id, position, stop_type, facility_name, address, lat, lon,
		       scheduled_at, arrived_at, departed_at, status
		FROM stops
		WHERE load_id = $1
		ORDER BY position
	`, l.ID)
	if err != nil {
		return apperrors.Storage(err)
	}
	defer rows.Close()

	l.Stops = nil
	for rows.Next() {
		var st models.Stop
		var stopType, status string
		if err := rows.Scan(
			&st.LoadID, &st.Position, &stopType, &st.FacilityName, &st.Address,
			&st.Location.Lat, &st.Location.Lon, &st.ScheduledAt, &st.ArrivedAt,
			&st.DepartedAt, &status,
		); err != nil {
			return apperrors.Storage(err)
		}
		st.Type = models.StopType(stopType)
		st.Status = models.StopStatus(status)
		l.Stops = append(l.Stops, st)
	}
	if err := rows.Err(); err != nil {
		return apperrors.Storage(err)
	}

	var pod models.ProofOfDelivery
	err = q.QueryRow(ctx, `
		SELECT id, load_id, signer_name, delivered_at, signature_ref, photo_ref, created_at
		FROM proof_of_deliveries
		WHERE load_id = $1
	`, l.ID).Scan(&pod.ID, &pod.LoadID, &pod.SignerName, &pod.DeliveredAt, &pod.SignatureRef, &pod.PhotoRef, &pod.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return apperrors.Storage(err)
	}
	l.POD = &pod
	return nil
}

func (r *loadRepo) Create(ctx context.Context, load *models.Load, seed *models.TrackingEvent) (*models.Load, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO loads (id, load_number, commodity, weight_lbs, equipment_type, rate,
		                   pickup_date, delivery_date, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`,
		load.ID, load.LoadNumber, load.Commodity, load.WeightLbs, load.EquipmentType,
		load.Rate.String(), load.PickupDate, load.DeliveryDate, string(load.Status),
		load.Version, load.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to create load", logger.Error(err))
		return nil, apperrors.Storage(err)
	}

	for i := range load.Stops {
		st := &load.Stops[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO stops (load_id, position, stop_type, facility_name, address,
			                   lat, lon, scheduled_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			load.ID, st.Position, string(st.Type), st.FacilityName, st.Address,
			st.Location.Lat, st.Location.Lon, st.ScheduledAt, string(st.Status),
		)
		if err != nil {
			r.log.Error("failed to create stop", logger.Error(err))
			return nil, apperrors.Storage(err)
		}
	}

	if seed != nil {
		seed.LoadID = load.ID
		if err := insertEvent(ctx, tx, seed); err != nil {
			return nil, apperrors.Storage(err)
		}
	}

	created, err := r.getLoad(ctx, tx, load.ID, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Storage(err)
	}
	r.notifyChanged(ctx, created.ID, created.Status)
	return created, nil
}

func (r *loadRepo) GetByID(ctx context.Context, id string) (*models.Load, error) {
	return r.getLoad(ctx, r.db, id, false)
}

func (r *loadRepo) GetByNumber(ctx context.Context, number string) (*models.Load, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM loads WHERE load_number = $1`, number).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return r.GetByID(ctx, id)
}

func (r *loadRepo) GetAll(ctx context.Context) ([]*models.Load, error) {
	return r.listLoads(ctx, `SELECT `+loadFields+` FROM loads ORDER BY created_at DESC`)
}

func (r *loadRepo) GetByStatus(ctx context.Context, status models.LoadStatus) ([]*models.Load, error) {
	return r.listLoads(ctx,
		`SELECT `+loadFields+` FROM loads WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
}

func (r *loadRepo) GetPending(ctx context.Context) ([]*models.Load, error) {
	return r.GetByStatus(ctx, models.StatusPending)
}

func (r *loadRepo) GetActive(ctx context.Context) ([]*models.Load, error) {
	return r.listLoads(ctx,
		`SELECT `+loadFields+` FROM loads WHERE status = ANY($1) ORDER BY created_at DESC`,
		activeStatusList())
}

func (r *loadRepo) GetCreatedBetween(ctx context.Context, from, to time.Time) ([]*models.Load, error) {
	return r.listLoads(ctx,
		`SELECT `+loadFields+` FROM loads WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`,
		from, to)
}

func (r *loadRepo) GetDeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Load, error) {
	return r.listLoads(ctx,
		`SELECT `+loadFields+` FROM loads
		 WHERE actual_delivery_time >= $1 AND actual_delivery_time < $2
		 ORDER BY actual_delivery_time`,
		from, to)
}

func (r *loadRepo) CountByStatus(ctx context.Context) (map[models.LoadStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM loads GROUP BY status`)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer rows.Close()

	counts := make(map[models.LoadStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.Storage(err)
		}
		counts[models.LoadStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err)
	}
	return counts, nil
}

func (r *loadRepo) listLoads(ctx context.Context, query string, args ...any) ([]*models.Load, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer rows.Close()

	var loads []*models.Load
	for rows.Next() {
		l, err := scanLoadRow(rows)
		if err != nil {
			return nil, apperrors.Storage(err)
		}
		loads = append(loads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(err)
	}
	for _, l := range loads {
		if err := r.attachDetails(ctx, r.db, l); err != nil {
			return nil, err
		}
	}
	return loads, nil
}

func (r *loadRepo) ApplyTransition(ctx context.Context, loadID string, up storage.TransitionUpdate) (*models.Load, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer tx.Rollback(ctx)

	cur, err := r.getLoad(ctx, tx, loadID, true)
	if err != nil {
		return nil, err
	}
	// Compare-and-update: the precondition is re-evaluated under the row
	// lock so a racing writer surfaces as a retryable conflict.
	if cur.Status != up.FromStatus {
		return nil, apperrors.Wrapf(apperrors.ErrConcurrentModification,
			"load %s is %s, expected %s", loadID, cur.Status, up.FromStatus)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE loads
		SET status = $1,
		    version = version + 1,
		    updated_at = $2,
		    actual_pickup_time = COALESCE($3, actual_pickup_time),
		    actual_delivery_time = COALESCE($4, actual_delivery_time)
		WHERE id = $5
	`, string(up.ToStatus), now, up.ActualPickupTime, up.ActualDeliveryTime, loadID)
	if err != nil {
		r.log.Error("failed to update load status", logger.String("load_id", loadID), logger.Error(err))
		return nil, apperrors.Storage(err)
	}

	if up.ClearAssignment {
		if _, err = tx.Exec(ctx, `UPDATE loads SET driver_id = NULL, vehicle_id = NULL WHERE id = $1`, loadID); err != nil {
			return nil, apperrors.Storage(err)
		}
	}

	if up.CompleteStop != nil {
		_, err = tx.Exec(ctx, `
			UPDATE stops
			SET status = $1, departed_at = COALESCE(departed_at, $2)
			WHERE load_id = $3 AND position = $4 AND status = $5
		`, string(models.StopStatusCompleted), now, loadID, *up.CompleteStop, string(models.StopStatusArrived))
		if err != nil {
			return nil, apperrors.Storage(err)
		}
	}

	if up.POD != nil {
		pod := *up.POD
		pod.LoadID = loadID
		if pod.CreatedAt.IsZero() {
			pod.CreatedAt = now
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO proof_of_deliveries (id, load_id, signer_name, delivered_at, signature_ref, photo_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, pod.ID, pod.LoadID, pod.SignerName, pod.DeliveredAt, pod.SignatureRef, pod.PhotoRef, pod.CreatedAt)
		if err != nil {
			return nil, apperrors.Storage(err)
		}
	}

	ev := up.Event
	ev.LoadID = loadID
	if err := insertEvent(ctx, tx, &ev); err != nil {
		return nil, apperrors.Storage(err)
	}

	updated, err := r.getLoad(ctx, tx, loadID, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Storage(err)
	}
	r.notifyChanged(ctx, updated.ID, updated.Status)
	return updated, nil
}

func (r *loadRepo) AssignDriver(ctx context.Context, loadID string, driverID, vehicleID int64, event models.TrackingEvent) (*models.Load, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer tx.Rollback(ctx)

	cur, err := r.getLoad(ctx, tx, loadID, true)
	if err != nil {
		return nil, err
	}
	if cur.Status != models.StatusPending {
		return nil, apperrors.Wrapf(apperrors.ErrAlreadyAssigned, "load %s is %s", loadID, cur.Status)
	}

	// Lock the driver and vehicle rows so concurrent assigns of the same
	// pair on different loads serialize instead of both passing the count.
	var exists int64
	err = tx.QueryRow(ctx, `SELECT id FROM drivers WHERE id = $1 FOR UPDATE`, driverID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "driver %d", driverID)
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	err = tx.QueryRow(ctx, `SELECT id FROM vehicles WHERE id = $1 FOR UPDATE`, vehicleID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "vehicle %d", vehicleID)
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	var busy int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM loads WHERE driver_id = $1 AND status = ANY($2)`,
		driverID, activeStatusList()).Scan(&busy)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if busy > 0 {
		return nil, apperrors.Wrapf(apperrors.ErrDriverUnavailable, "driver %d has an active load", driverID)
	}
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM loads WHERE vehicle_id = $1 AND status = ANY($2)`,
		vehicleID, activeStatusList()).Scan(&busy)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if busy > 0 {
		return nil, apperrors.Wrapf(apperrors.ErrVehicleUnavailable, "vehicle %d has an active load", vehicleID)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE loads
		SET driver_id = $1, vehicle_id = $2, status = $3, version = version + 1, updated_at = $4
		WHERE id = $5
	`, driverID, vehicleID, string(models.StatusAssigned), now, loadID)
	if err != nil {
		r.log.Error("failed to assign load", logger.String("load_id", loadID), logger.Error(err))
		return nil, apperrors.Storage(err)
	}

	event.LoadID = loadID
	if err := insertEvent(ctx, tx, &event); err != nil {
		return nil, apperrors.Storage(err)
	}

	updated, err := r.getLoad(ctx, tx, loadID, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Storage(err)
	}
	r.notifyChanged(ctx, updated.ID, updated.Status)
	return updated, nil
}

func (r *loadRepo) UpdateStop(ctx context.Context, loadID string, position int, up storage.StopUpdate) (*models.Load, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	defer tx.Rollback(ctx)

	cur, err := r.getLoad(ctx, tx, loadID, true)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= len(cur.Stops) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "load %s has no stop %d", loadID, position)
	}
	if cur.Stops[position].Status != up.FromStatus {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidStopState,
			"stop %d is %s, expected %s", position, cur.Stops[position].Status, up.FromStatus)
	}

	_, err = tx.Exec(ctx, `
		UPDATE stops
		SET status = $1,
		    arrived_at = COALESCE($2, arrived_at),
		    departed_at = COALESCE($3, departed_at)
		WHERE load_id = $4 AND position = $5
	`, string(up.ToStatus), up.ArrivedAt, up.DepartedAt, loadID, position)
	if err != nil {
		r.log.Error("failed to update stop", logger.String("load_id", loadID), logger.Int("position", position), logger.Error(err))
		return nil, apperrors.Storage(err)
	}

	now := time.Now().UTC()
	if _, err = tx.Exec(ctx, `UPDATE loads SET version = version + 1, updated_at = $1 WHERE id = $2`, now, loadID); err != nil {
		return nil, apperrors.Storage(err)
	}

	ev := up.Event
	ev.LoadID = loadID
	if err := insertEvent(ctx, tx, &ev); err != nil {
		return nil, apperrors.Storage(err)
	}

	updated, err := r.getLoad(ctx, tx, loadID, false)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Storage(err)
	}
	r.notifyChanged(ctx, updated.ID, updated.Status)
	return updated, nil
}

func (r *loadRepo) Delete(ctx context.Context, loadID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM loads WHERE id = $1`, loadID)
	if err != nil {
		r.log.Error("failed to delete load", logger.String("load_id", loadID), logger.Error(err))
		return apperrors.Storage(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	if r.notifier != nil {
		r.notifier.LoadDeleted(ctx, loadID)
	}
	return nil
}

func (r *loadRepo) notifyChanged(ctx context.Context, loadID string, status models.LoadStatus) {
	if r.notifier != nil {
		r.notifier.LoadChanged(ctx, loadID, status)
	}
}

func activeStatusList() []string {
	statuses := make([]string, 0, len(models.ActiveStatuses))
	for _, s := range models.ActiveStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}
