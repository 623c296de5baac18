package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(255) NOT NULL,
				minutes_delay INTEGER,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_trigger_type
				ON workflows (trigger_type) WHERE is_active;

			CREATE TABLE IF NOT EXISTS workflow_actions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
				action_type VARCHAR(255) NOT NULL,
				action_config JSONB NOT NULL DEFAULT '{}',
				position INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_actions_workflow_id
				ON workflow_actions (workflow_id, position, created_at);

			CREATE TABLE IF NOT EXISTS workflow_runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows (id),
				trigger_payload JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(32) NOT NULL DEFAULT 'queued',
				queued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				result_payload JSONB,
				error_message TEXT
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_runs_queued
				ON workflow_runs (queued_at) WHERE status = 'queued';

			CREATE TABLE IF NOT EXISTS sla_targets (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				entity_type VARCHAR(255) NOT NULL,
				threshold_minutes INTEGER NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS sla_incidents (
				id UUID PRIMARY KEY,
				target_id UUID NOT NULL REFERENCES sla_targets (id),
				entity_type VARCHAR(255) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'open',
				breach_reason TEXT NOT NULL DEFAULT '',
				opened_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				resolved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_sla_incidents_target
				ON sla_incidents (target_id) WHERE status IN ('open', 'acknowledged');
			CREATE INDEX IF NOT EXISTS idx_sla_incidents_entity
				ON sla_incidents (entity_type, entity_id) WHERE status IN ('open', 'acknowledged');

			CREATE TABLE IF NOT EXISTS appointments (
				id UUID PRIMARY KEY,
				customer_id VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(64) NOT NULL DEFAULT 'pending',
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_appointments_pending
				ON appointments (scheduled_at) WHERE status = 'pending';

			CREATE TABLE IF NOT EXISTS conversations (
				id UUID PRIMARY KEY,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY,
				conversation_id UUID NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
				sender VARCHAR(255) NOT NULL DEFAULT '',
				body TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_messages_conversation
				ON messages (conversation_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS notifications (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				category VARCHAR(255) NOT NULL DEFAULT 'general',
				title TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL DEFAULT '',
				status VARCHAR(32) NOT NULL DEFAULT 'pending',
				sent_channels JSONB,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_notifications_user
				ON notifications (user_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS user_channel_preferences (
				user_id VARCHAR(255) PRIMARY KEY,
				email_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				sms_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				push_enabled BOOLEAN NOT NULL DEFAULT TRUE
			);
		`,
	}
}
