// Package http implements the HTTP handlers of the export API. Handlers stay
// thin: they parse and validate the request, call a service and turn the
// result into a download, a JSON body or an RFC 7807 problem.
//
// # Routes
//
//	POST /api/export/{format}   export the JSON dataset in the body
//	GET  /api/export/{format}   export the filtered population
//	GET  /api/population        summary table of the filtered population
//	GET  /api/health            health, readiness, liveness and version
//
// format is csv or xlsx. Population filters are passed as query parameters:
// gender, age_min, age_max, height_min, height_max, weight_min, weight_max,
// bmi_min and bmi_max. Absent parameters take the default summary table
// ranges.
//
// # Errors
//
// Service errors are mapped before they reach the error handler:
//
//	*exporter.ValidationError -> 422 INVALID_DATASET with every problem
//	malformed JSON            -> 400 INVALID_REQUEST
//	oversized body            -> 413 PAYLOAD_TOO_LARGE
//	bad filter                -> 400 VALIDATION_FAILED
package http
