package web

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Response struct {
	Results interface{}     `json:"results,omitempty"`
	Errors  []ResponseError `json:"errors,omitempty"`
}

type ResponseError struct {
	Message string `json:"message"`
}

func (a ResponseError) Error() string {
	return a.Message
}

// Outcome is a fully rendered response. It is what the transfer endpoint
// keeps for replaying a request with the same idempotency key.
type Outcome struct {
	Code int
	Body []byte
}

func Respond(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	Result(r, code, data).Write(w, r)
}

func RespondError(w http.ResponseWriter, r *http.Request, code int, err error) {
	Failure(r, code, err).Write(w, r)
}

// Result renders data in the results envelope.
func Result(r *http.Request, code int, data interface{}) Outcome {
	if code == http.StatusNoContent || data == nil {
		return Outcome{Code: code}
	}
	return render(r, code, &Response{Results: data})
}

// Failure renders err in the errors envelope. Server errors other than 501
// and 503 are logged and replaced with a generic message.
func Failure(r *http.Request, code int, err error) Outcome {
	logger := log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": code,
	}).WithError(err)

	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable && code != http.StatusNotImplemented {
		logger.Error("error while serving request")
		code = http.StatusInternalServerError
		err = errors.New(http.StatusText(http.StatusInternalServerError))
	} else {
		logger.Warn("request rejected")
	}

	return render(r, code, &Response{Errors: []ResponseError{{Message: err.Error()}}})
}

func render(r *http.Request, code int, resp *Response) Outcome {
	b, err := json.Marshal(resp)
	if err != nil {
		return Failure(r, http.StatusInternalServerError, errors.Wrap(err, "marshal response"))
	}
	return Outcome{Code: code, Body: b}
}

func (o Outcome) Write(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(o.Code)

	if len(o.Body) == 0 {
		return
	}
	if _, err := w.Write(o.Body); err != nil {
		log.WithError(errors.Wrap(err, "write response body")).WithField("path", r.URL.Path).Warn("response not delivered")
	}
}
