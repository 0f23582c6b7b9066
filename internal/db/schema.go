package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- SESSION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS session SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON session TYPE string;
    DEFINE FIELD IF NOT EXISTS start_time ON session TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS end_time ON session TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS session_user ON session FIELDS user_id;
    DEFINE INDEX IF NOT EXISTS session_user_start ON session FIELDS user_id, start_time;

    -- ==========================================================================
    -- TURN TABLE
    -- ==========================================================================
    -- Append-only message log. Role alternation is enforced by the service
    -- layer under a per-session lock; the schema only constrains the domain.
    DEFINE TABLE IF NOT EXISTS turn SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS session_id ON turn TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON turn TYPE string ASSERT $value IN ["user", "assistant"];
    DEFINE FIELD IF NOT EXISTS content ON turn TYPE string;
    DEFINE FIELD IF NOT EXISTS sources ON turn TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS created_at ON turn TYPE datetime;

    DEFINE INDEX IF NOT EXISTS turn_session ON turn FIELDS session_id;
    DEFINE INDEX IF NOT EXISTS turn_session_time ON turn FIELDS session_id, created_at;

    -- ==========================================================================
    -- DAILY REPORT TABLE
    -- ==========================================================================
    -- The unique index on (user_id, report_date) is what makes report
    -- find-or-create safe under concurrency: the losing insert fails and
    -- re-reads the winner's row.
    DEFINE TABLE IF NOT EXISTS daily_report SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON daily_report TYPE string;
    DEFINE FIELD IF NOT EXISTS report_date ON daily_report TYPE string;
    DEFINE FIELD IF NOT EXISTS symptoms ON daily_report TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS severity ON daily_report TYPE string ASSERT $value IN ["low", "medium", "high"];
    DEFINE FIELD IF NOT EXISTS diagnosis ON daily_report TYPE string;
    DEFINE FIELD IF NOT EXISTS advice ON daily_report TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS created_at ON daily_report TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS report_user_date ON daily_report FIELDS user_id, report_date UNIQUE;

    -- ==========================================================================
    -- KNOWLEDGE BASE TABLES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS title ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS hash ON document TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON document TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS document_source ON document FIELDS source UNIQUE;

    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS document_id ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS position ON chunk TYPE int;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;

    DEFINE INDEX IF NOT EXISTS chunk_document ON chunk FIELDS document_id;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION 384 DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS chunk_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS chunk_content_ft ON chunk FIELDS content FULLTEXT ANALYZER chunk_analyzer BM25;
`
