package repository

// Table name constants.
const (
	tableSources            = "sources"
	tableSourceRecordsFiles = "source_records_files"
	tableRecords            = "records"
	tableRecordContents     = "record_contents"
	tableHarvestingStatuses = "harvesting_statuses"
)

// lookupChunkSize bounds the number of ids in a single IN clause.
const lookupChunkSize = 500
