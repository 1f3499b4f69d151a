package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- INDEXING_RUN TABLE (durable progress record, one per run)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS indexing_run SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON indexing_run TYPE string;
    DEFINE FIELD IF NOT EXISTS provider ON indexing_run TYPE string
        ASSERT $value IN ["google", "microsoft"];
    DEFINE FIELD IF NOT EXISTS root_folder_id ON indexing_run TYPE string;
    DEFINE FIELD IF NOT EXISTS current_folder_id ON indexing_run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON indexing_run TYPE string
        ASSERT $value IN ["initializing", "running", "completed", "error", "stopped"];
    DEFINE FIELD IF NOT EXISTS total_files ON indexing_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS processed_files ON indexing_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS depth ON indexing_run TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS last_processed_file ON indexing_run TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS error ON indexing_run TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS settings ON indexing_run TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON indexing_run TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON indexing_run TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS run_user ON indexing_run FIELDS user_id;
    DEFINE INDEX IF NOT EXISTS run_status ON indexing_run FIELDS status;

    -- ==========================================================================
    -- INDEXED_DOCUMENT TABLE (one record per discovered drive file)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS indexed_document SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON indexed_document TYPE string;
    DEFINE FIELD IF NOT EXISTS provider ON indexed_document TYPE string
        ASSERT $value IN ["google", "microsoft"];
    DEFINE FIELD IF NOT EXISTS external_id ON indexed_document TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON indexed_document TYPE string;
    DEFINE FIELD IF NOT EXISTS mime_type ON indexed_document TYPE string;
    DEFINE FIELD IF NOT EXISTS file_size ON indexed_document TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS parent_folder_id ON indexed_document TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON indexed_document TYPE string
        ASSERT $value IN ["pending", "indexed", "error"];
    DEFINE FIELD IF NOT EXISTS content ON indexed_document TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS metadata ON indexed_document TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON indexed_document TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON indexed_document TYPE datetime DEFAULT time::now();

    -- Re-indexing the same file must update, never duplicate
    DEFINE INDEX IF NOT EXISTS document_identity ON indexed_document
        FIELDS user_id, provider, external_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS document_parent ON indexed_document FIELDS parent_folder_id;

    -- ==========================================================================
    -- DRIVE_FOLDER TABLE (indexed root folders, for UI history)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS drive_folder SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON drive_folder TYPE string;
    DEFINE FIELD IF NOT EXISTS provider ON drive_folder TYPE string;
    DEFINE FIELD IF NOT EXISTS folder_id ON drive_folder TYPE string;
    DEFINE FIELD IF NOT EXISTS name ON drive_folder TYPE string;
    DEFINE FIELD IF NOT EXISTS is_indexed ON drive_folder TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS last_indexed ON drive_folder TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS metadata ON drive_folder TYPE option<object> FLEXIBLE;

    DEFINE INDEX IF NOT EXISTS folder_identity ON drive_folder
        FIELDS user_id, provider, folder_id UNIQUE;

    -- ==========================================================================
    -- OAUTH_TOKEN TABLE (written by the credential service, read-only here)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS oauth_token SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON oauth_token TYPE string;
    DEFINE FIELD IF NOT EXISTS provider ON oauth_token TYPE string;
    DEFINE FIELD IF NOT EXISTS access_token ON oauth_token TYPE string;
    DEFINE FIELD IF NOT EXISTS is_valid ON oauth_token TYPE bool DEFAULT true;
    DEFINE FIELD IF NOT EXISTS expires_at ON oauth_token TYPE datetime;

    DEFINE INDEX IF NOT EXISTS token_identity ON oauth_token
        FIELDS user_id, provider UNIQUE;
`
