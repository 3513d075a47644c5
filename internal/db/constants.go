package db

// SQL query fragments used across multiple functions
const (
	// sqlCacheColumns lists cop_analysis_cache columns in scan order
	sqlCacheColumns = `id, cache_key, category, unit, year, month, cement_type,
		analysis_data, created_at, expires_at, last_accessed, data_size`

	// sqlFooterColumns lists ccr_footer_data columns in scan order
	sqlFooterColumns = `id, date, parameter_id, plant_unit, shift3_cont, shift1, shift2,
		shift3, total, updated_at`

	// sqlParameterColumns lists parameter_settings columns in scan order
	sqlParameterColumns = `id, parameter, unit, category, plant_unit, opc_min, opc_max,
		pcc_min, pcc_max, is_counter`
)
