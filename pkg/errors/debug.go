package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error: its typed code, the unwrap
// chain and whatever the failing backend reported.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	// Backend is "postgres" or "object_store" when a driver error was found.
	Backend    string `json:"backend,omitempty"`
	Operation  string `json:"operation,omitempty"`
	BackendErr string `json:"backend_code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"backend_message,omitempty"`
}

var backendProbes = []func(error, *ErrorDump) bool{
	probePgx,
	probePq,
	probeObjectStore,
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	for _, probe := range backendProbes {
		if probe(err, &d) {
			break
		}
	}
	return d
}

// Fields flattens the dump into log fields, omitting empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("error_code", string(d.Code))
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	put("backend", d.Backend)
	put("backend_operation", d.Operation)
	put("backend_code", d.BackendErr)
	put("backend_constraint", d.Constraint)
	put("backend_table", d.Table)
	put("backend_column", d.Column)
	put("backend_detail", d.Detail)
	put("backend_message", d.Message)
	return fields
}

func probePgx(err error, d *ErrorDump) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	d.Backend = "postgres"
	d.BackendErr = pgErr.Code
	d.Constraint = pgErr.ConstraintName
	d.Table = pgErr.TableName
	d.Column = pgErr.ColumnName
	d.Detail = pgErr.Detail
	d.Message = pgErr.Message
	return true
}

func probePq(err error, d *ErrorDump) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	d.Backend = "postgres"
	d.BackendErr = string(pqErr.Code)
	d.Constraint = pqErr.Constraint
	d.Table = pqErr.Table
	d.Column = pqErr.Column
	d.Detail = pqErr.Detail
	d.Message = pqErr.Message
	return true
}

// probeObjectStore reads the error shape returned by aws-sdk-go-v2 clients.
func probeObjectStore(err error, d *ErrorDump) bool {
	var apiErr smithy.APIError
	found := false
	if errors.As(err, &apiErr) {
		d.BackendErr = apiErr.ErrorCode()
		d.Message = apiErr.ErrorMessage()
		found = true
	}
	var opErr *smithy.OperationError
	if errors.As(err, &opErr) {
		d.Operation = opErr.Service() + "." + opErr.Operation()
		found = true
	}
	if found {
		d.Backend = "object_store"
	}
	return found
}
