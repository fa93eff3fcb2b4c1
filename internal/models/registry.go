package models

// All lists every model managed by schema migration, in dependency order
func All() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&Worker{},
		&SupervisorWorker{},
		&Crop{},
		&LaborType{},
		&Plot{},
		&LaborEvent{},
		&Alert{},
	}
}

// DefaultRoles is the fixed role catalog. Ids match access.Role values
func DefaultRoles() []Role {
	return []Role{
		{ID: 1, Name: "Administrador", Description: "Acceso total"},
		{ID: 2, Name: "Supervisor", Description: "Gestiona trabajadores asignados"},
		{ID: 3, Name: "Operario", Description: "Registra sus propias labores"},
	}
}
