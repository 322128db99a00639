package detectionRepository

const (
	queryCreateDetection = `
		INSERT INTO detections (
			id,
			profile_id,
			file_name,
			image_path,
			image_hash,
			archive_url,
			is_dicom,
			model,
			predictions,
			top_label,
			top_score,
			flagged,
			mock,
			note,
			created_at,
			updated_at
		) VALUES (
			:id,
			:profile_id,
			:file_name,
			:image_path,
			:image_hash,
			:archive_url,
			:is_dicom,
			:model,
			:predictions,
			:top_label,
			:top_score,
			:flagged,
			:mock,
			:note,
			:created_at,
			:updated_at
		)
	`

	queryGetDetectionByID = `
		SELECT
			id,
			profile_id,
			file_name,
			image_path,
			image_hash,
			archive_url,
			is_dicom,
			model,
			predictions,
			top_label,
			top_score,
			flagged,
			mock,
			note,
			created_at,
			updated_at
		FROM detections
		WHERE id = :id
	`

	queryGetDetectionsByProfileID = `
		SELECT
			id,
			profile_id,
			file_name,
			image_path,
			image_hash,
			archive_url,
			is_dicom,
			model,
			predictions,
			top_label,
			top_score,
			flagged,
			mock,
			note,
			created_at,
			updated_at
		FROM detections
		WHERE profile_id = :profile_id
		ORDER BY created_at DESC, id DESC
		LIMIT :limit OFFSET :offset
	`

	queryCountDetectionsByProfileID = `
		SELECT COUNT(*) FROM detections WHERE profile_id = :profile_id
	`

	queryUpdateDetectionNote = `
		UPDATE detections SET
			note = :note,
			updated_at = :updated_at
		WHERE id = :id
	`

	queryDeleteDetection = `
		DELETE FROM detections WHERE id = :id
	`
)
