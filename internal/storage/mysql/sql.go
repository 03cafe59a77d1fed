package mysql

// Note: `text` is reserved; keep it quoted everywhere.
const insertCleanedPrefix = "INSERT INTO cleaned_reviews\n  (source, source_id, author, rating, `text`, clean_text, reviewed_at, raw)\nVALUES "

// Re-cleaning a file replaces the derived columns; COALESCE keeps known
// metadata when a later file lacks it.
const insertCleanedOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author      = COALESCE(VALUES(author), cleaned_reviews.author),\n" +
	"  rating      = COALESCE(VALUES(rating), cleaned_reviews.rating),\n" +
	"  `text`      = VALUES(`text`),\n" +
	"  clean_text  = VALUES(clean_text),\n" +
	"  reviewed_at = COALESCE(VALUES(reviewed_at), cleaned_reviews.reviewed_at),\n" +
	"  raw         = VALUES(raw)\n"

const countBySourceSQL = `SELECT COUNT(*) FROM cleaned_reviews WHERE source = ?`

// rows per INSERT; 8 params each keeps well under the placeholder limit
const batchSize = 500
