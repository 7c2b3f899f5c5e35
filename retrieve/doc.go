// Package retrieve finds the passages of an indexed document most
// relevant to a user query. Queries are optionally expanded into
// alternative phrasings, embedded, and matched against chunk embeddings
// with priority boosts for early, definitional, and concise passages;
// greedy Maximal Marginal Relevance selection keeps the result set
// diverse, and token-budget compression keeps it affordable for prompt
// assembly.
package retrieve
