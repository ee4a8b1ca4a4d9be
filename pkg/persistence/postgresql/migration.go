package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('DRAFT', 'ACTIVE', 'PAUSED', 'ARCHIVED')),
				trigger_type VARCHAR(100) NOT NULL,
				trigger_config JSONB,
				conditions JSONB,
				is_active BOOLEAN NOT NULL DEFAULT false,
				actions JSONB NOT NULL DEFAULT '[]',
				allow_multiple_runs BOOLEAN NOT NULL DEFAULT false,
				max_runs BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_tenant_id ON workflows(tenant_id);
			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type);
		`,
		2: `
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				tenant_id VARCHAR(255) NOT NULL,
				event_id VARCHAR(255) NOT NULL,
				snapshot JSONB NOT NULL,
				event JSONB,
				status VARCHAR(50) NOT NULL CHECK (status IN ('RUNNING', 'SUCCEEDED', 'FAILED', 'CANCELLED')),
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_tenant_id ON executions(tenant_id);
			CREATE INDEX idx_executions_status ON executions(status);

			-- Append-only audit trail: one row per action attempt, never
			-- updated. seq preserves insertion order within an execution.
			CREATE TABLE action_results (
				seq BIGSERIAL PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				action_id VARCHAR(255) NOT NULL,
				action_name VARCHAR(255) NOT NULL DEFAULT '',
				action_type VARCHAR(100) NOT NULL,
				ord INT NOT NULL,
				attempt INT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('SUCCEEDED', 'FAILED', 'RETRYING', 'SKIPPED')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
				output JSONB,
				error TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_action_results_execution_id ON action_results(execution_id);
		`,
		3: `
			CREATE TABLE schedules (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL UNIQUE,
				tenant_id VARCHAR(255) NOT NULL,
				cron_expression VARCHAR(255) NOT NULL DEFAULT '',
				fire_at TIMESTAMP WITH TIME ZONE,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_schedules_due ON schedules(active, next_due_at);
		`,
	}
}
