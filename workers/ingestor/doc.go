/*
Package ingestor is the run-once agent that imports pet names.

On start a one-shot trigger fires the file poller, which moves every object
under INGEST_PREFIX in INGEST_BUCKET into INGEST_LOCAL_DIR. An empty
directory ends the run with exit code 3. Otherwise every file becomes one
ingestion job that reads rows of id,owner_id,name and writes each name to
the stored pet with that id. Rows for unknown pets are skipped and an
empty name leaves the pet unnamed. Ingested files are removed locally;
files whose job failed stay and are picked up by the next run.

Layout

	├── cmd/            # Process entry point and wiring
	└── internal/
	    ├── job/        # Ingestion batch job: CSV reader, name processor, pet writer
	    └── flow/       # File source, parameter transformer, item handler
*/
package ingestor
