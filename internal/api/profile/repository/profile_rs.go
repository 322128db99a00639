package profileRepository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"PanoGuard/internal/api/profile"
	"PanoGuard/internal/entity"
	contextPkg "PanoGuard/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ProfileDB struct {
	ID            sql.NullString `db:"id"`
	Name          sql.NullString `db:"name"`
	Email         sql.NullString `db:"email"`
	Password      sql.NullString `db:"password"`
	Clinic        sql.NullString `db:"clinic"`
	LicenseNumber sql.NullString `db:"license_number"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r *profileRepository) CreateProfile(c context.Context, p entity.Profile) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":             p.ID,
		"name":           p.Name,
		"email":          strings.ToLower(p.Email),
		"password":       p.Password,
		"clinic":         p.Clinic,
		"license_number": p.LicenseNumber,
		"created_at":     p.CreatedAt,
		"updated_at":     p.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateProfile, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateProfile")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating profile")
		return err
	}

	return nil
}

func (r *profileRepository) GetByID(c context.Context, id string) (entity.Profile, error) {
	return r.getOne(c, queryGetProfileByID, map[string]interface{}{"id": id}, "GetByID")
}

func (r *profileRepository) GetByEmail(c context.Context, email string) (entity.Profile, error) {
	return r.getOne(c, queryGetProfileByEmail, map[string]interface{}{"email": email}, "GetByEmail")
}

func (r *profileRepository) getOne(c context.Context, namedQuery string, argsKV map[string]interface{}, op string) (entity.Profile, error) {
	requestID := contextPkg.GetRequestID(c)
	var row ProfileDB

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " named query preparation err")
		return entity.Profile{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
			}).Debug(op + " no rows found")
			return entity.Profile{}, profile.ErrProfileNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error(op + " execution err")
		return entity.Profile{}, err
	}

	return r.makeProfile(row), nil
}

func (r *profileRepository) UpdateProfile(c context.Context, p entity.Profile) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":             p.ID,
		"name":           p.Name,
		"email":          strings.ToLower(p.Email),
		"password":       p.Password,
		"clinic":         p.Clinic,
		"license_number": p.LicenseNumber,
		"updated_at":     p.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryUpdateProfile, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateProfile named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateProfile execution err")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return profile.ErrProfileNotFound
	}

	return nil
}

func (r *profileRepository) makeProfile(p ProfileDB) entity.Profile {
	return entity.Profile{
		ID:            p.ID.String,
		Name:          p.Name.String,
		Email:         p.Email.String,
		Password:      p.Password.String,
		Clinic:        p.Clinic.String,
		LicenseNumber: p.LicenseNumber.String,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
