package repository

// Schema definitions for the Warden database.
// Compatible with both SQLite and PostgreSQL.

const schemaBusinessRules = `
CREATE TABLE IF NOT EXISTS business_rules (
    id TEXT PRIMARY KEY,
    rule_code TEXT NOT NULL UNIQUE,
    rule_name TEXT NOT NULL,
    rule_category TEXT NOT NULL,
    rule_type TEXT NOT NULL,
    benefit_program TEXT,
    mcc_restrictions TEXT NOT NULL DEFAULT '[]',
    conditions TEXT NOT NULL DEFAULT '{}',
    response_action TEXT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 100,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_business_rules_program ON business_rules(benefit_program, is_active);
CREATE INDEX IF NOT EXISTS idx_business_rules_priority ON business_rules(priority, created_at);
`

const schemaMCCCodes = `
CREATE TABLE IF NOT EXISTS mcc_codes (
    code TEXT PRIMARY KEY,
    description TEXT NOT NULL,
    category TEXT NOT NULL
);
`

const schemaWICApprovedItems = `
CREATE TABLE IF NOT EXISTS wic_approved_items (
    upc_code TEXT NOT NULL,
    state TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (upc_code, state)
);
`

const schemaApprovedLandlords = `
CREATE TABLE IF NOT EXISTS approved_landlords (
    payee_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    is_approved INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL
);
`

// schemaRestrictedAreas lists where a program may not be spent.
// An empty mcc applies to every merchant code.
const schemaRestrictedAreas = `
CREATE TABLE IF NOT EXISTS restricted_areas (
    id TEXT PRIMARY KEY,
    program TEXT NOT NULL,
    mcc TEXT NOT NULL DEFAULT '',
    area_type TEXT NOT NULL,
    center_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
    center_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
    radius_miles DOUBLE PRECISION NOT NULL DEFAULT 0,
    zip_code TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_restricted_areas_program ON restricted_areas(program, mcc, is_active);
`

// schemaTransactions is the authoritative spend history read by velocity and cash limits.
const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    wallet_id TEXT NOT NULL,
    program TEXT NOT NULL,
    mcc TEXT NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_wallet ON transactions(wallet_id, status, created_at);
`

const schemaRuleEvaluationLogs = `
CREATE TABLE IF NOT EXISTS rule_evaluation_logs (
    id TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    program TEXT NOT NULL,
    merchant_category_code TEXT NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    approved INTEGER NOT NULL,
    reasons TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    applied_rules TEXT NOT NULL,
    required_actions TEXT NOT NULL,
    evaluated_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rule_evaluation_logs_tx ON rule_evaluation_logs(transaction_id);
CREATE INDEX IF NOT EXISTS idx_rule_evaluation_logs_time ON rule_evaluation_logs(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_rule_evaluation_logs_program ON rule_evaluation_logs(program, evaluated_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaBusinessRules,
		schemaMCCCodes,
		schemaWICApprovedItems,
		schemaApprovedLandlords,
		schemaRestrictedAreas,
		schemaTransactions,
		schemaRuleEvaluationLogs,
	}
}
