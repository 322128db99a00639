package feedbackRepository

const (
	queryCreateFeedback = `
		INSERT INTO feedback (
			id,
			detection_id,
			profile_id,
			label,
			agree,
			comment,
			created_at,
			updated_at
		) VALUES (
			:id,
			:detection_id,
			:profile_id,
			:label,
			:agree,
			:comment,
			:created_at,
			:updated_at
		)
	`

	queryGetFeedbackByID = `
		SELECT
			id,
			detection_id,
			profile_id,
			label,
			agree,
			comment,
			created_at,
			updated_at
		FROM feedback
		WHERE id = :id
	`

	queryGetFeedbackByDetectionID = `
		SELECT
			id,
			detection_id,
			profile_id,
			label,
			agree,
			comment,
			created_at,
			updated_at
		FROM feedback
		WHERE detection_id = :detection_id
		ORDER BY label ASC
	`

	queryCountFeedbackByLabel = `
		SELECT COUNT(*)
		FROM feedback
		WHERE detection_id = :detection_id
			AND profile_id = :profile_id
			AND label = :label
	`

	queryUpdateFeedback = `
		UPDATE feedback SET
			agree = :agree,
			comment = :comment,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryDeleteFeedback = `
		DELETE FROM feedback WHERE id = :id
	`

	queryGetDetectionOwner = `
		SELECT profile_id FROM detections WHERE id = :id
	`

	querySummaryByProfileID = `
		SELECT
			label,
			SUM(CASE WHEN agree THEN 1 ELSE 0 END) AS agree,
			SUM(CASE WHEN agree THEN 0 ELSE 1 END) AS disagree
		FROM feedback
		WHERE profile_id = :profile_id
		GROUP BY label
		ORDER BY label ASC
	`
)
