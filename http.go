package http

import (
	"github.com/frankli0324/go-h1/internal/cookiejar"
	"github.com/frankli0324/go-h1/internal/errdef"
	"github.com/frankli0324/go-h1/internal/form"
	"github.com/frankli0324/go-h1/internal/http"
)

type Header = http.Header
type Field = http.Field
type Request = http.Request
type PreparedRequest = http.PreparedRequest
type Response = http.Response

// Body is a request payload that can be opened any number of times, once
// per transmission attempt.
type Body = http.Body
type Raw = http.Raw

// url-encoded and multipart bodies
type (
	Values    = form.Values
	Pair      = form.Pair
	Multipart = form.Multipart
	Part      = form.Part
)

var (
	NewMultipart = form.NewMultipart
	FormField    = form.Field
	FormBytes    = form.Bytes
	FormFile     = form.File
	ParseQuery   = form.ParseQuery
)

type Jar = cookiejar.Jar
type Cookie = cookiejar.Cookie

type (
	SendError    = errdef.SendError
	ConnectError = errdef.ConnectError
	ProxyError   = errdef.ProxyError
	ParseError   = errdef.ParseError
)

var (
	IsTimeout  = errdef.IsTimeout
	SendKindOf = errdef.SendKindOf
)
