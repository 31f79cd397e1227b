package server

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/baetyl/baetyl-go/v2/errors"
	"github.com/baetyl/baetyl-go/v2/http"
	"github.com/baetyl/baetyl-go/v2/log"
	routing "github.com/qiangxue/fasthttp-routing"
)

type HandlerFunc func(ctx *routing.Context) (interface{}, error)

// requestError is answered with its status instead of 500
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...interface{}) error {
	return &requestError{status: 400, code: "RequestParamInvalid", msg: fmt.Sprintf(format, args...)}
}

func Wrapper(handler HandlerFunc) func(ctx *routing.Context) error {
	return func(ctx *routing.Context) error {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = errors.Errorf("unknown error: %v", r)
				}
				log.L().Info("handle a panic", log.Code(err), log.Error(err), log.Any("panic", string(debug.Stack())))
				http.RespondMsg(ctx, 500, "UnknownError", err.Error())
			}
		}()
		res, err := handler(ctx)
		if err != nil {
			log.L().Error("failed to handle request", log.Any("path", string(ctx.Path())), log.Error(err))
			if e, ok := err.(*requestError); ok {
				http.RespondMsg(ctx, e.status, e.code, e.msg)
				return nil
			}
			http.RespondMsg(ctx, 500, "UnknownError", err.Error())
			return nil
		}
		log.L().Debug("process success", log.Any("response", res))
		http.Respond(ctx, 200, toJSON(res))
		return nil
	}
}

func toJSON(obj interface{}) []byte {
	data, _ := json.Marshal(obj)
	return data
}
