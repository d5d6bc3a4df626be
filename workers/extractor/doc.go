/*
Package extractor is the run-once agent that exports unnamed pets.

On start a one-shot trigger fires the owner poller. Every owner becomes one
extraction job that writes the owner's unnamed pets to
<EXTRACT_LOCAL_DIR>/<ownerId>-<epochMillis>.csv, which is then uploaded to
EXTRACT_BUCKET under EXTRACT_KEY_PREFIX and removed locally.

Layout

	├── cmd/            # Process entry point and wiring
	└── internal/
	    ├── job/        # Extraction batch job: pet reader and CSV writer
	    └── flow/       # Owner source, parameter transformer, item handler

Exit codes: 0 when every owner was exported, 1 on any failure. A job
relaunched with the parameters of a failed execution resumes after its
last committed chunk.
*/
package extractor
