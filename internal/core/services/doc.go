// Package services holds the question-answering core: the index manager,
// the confidence-gated retriever, the answer generator and the ingestion
// pipeline that feeds them. Each service is written against driven ports
// only, so adapters can be swapped without touching it.
package services
