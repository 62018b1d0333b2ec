package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS flows (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				slug TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT FALSE,
				is_default BOOLEAN NOT NULL DEFAULT FALSE,
				version INTEGER NOT NULL DEFAULT 1,
				config JSONB NOT NULL DEFAULT '{}',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_flows_tenant_slug
				ON flows (tenant_id, slug) WHERE deleted_at IS NULL;

			CREATE TABLE IF NOT EXISTS flow_nodes (
				id TEXT PRIMARY KEY,
				flow_id TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				config JSONB NOT NULL DEFAULT '{}',
				metadata JSONB
			);

			CREATE INDEX IF NOT EXISTS idx_flow_nodes_flow_id ON flow_nodes (flow_id);

			CREATE TABLE IF NOT EXISTS flow_transitions (
				id TEXT PRIMARY KEY,
				flow_id TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				from_node_id TEXT NOT NULL REFERENCES flow_nodes(id) ON DELETE CASCADE,
				to_node_id TEXT NOT NULL REFERENCES flow_nodes(id) ON DELETE CASCADE,
				condition TEXT NOT NULL DEFAULT '',
				priority INTEGER NOT NULL DEFAULT 0,
				metadata JSONB
			);

			CREATE INDEX IF NOT EXISTS idx_flow_transitions_flow_id ON flow_transitions (flow_id);
			CREATE INDEX IF NOT EXISTS idx_flow_transitions_from_node ON flow_transitions (from_node_id);
		`,
	}
}
