// Package models provides API Gateway response helpers.
package models

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// APIResponse builds a standard API Gateway Lambda proxy response with CORS headers.
func APIResponse(statusCode int, body any) (events.APIGatewayProxyResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Headers:    corsHeaders(),
			Body:       fmt.Sprintf(`{"error":"json marshal: %s"}`, err.Error()),
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    corsHeaders(),
		Body:       string(b),
	}, nil
}

// ErrorResponse is APIResponse with an {"error": msg} body.
func ErrorResponse(statusCode int, msg string) (events.APIGatewayProxyResponse, error) {
	return APIResponse(statusCode, map[string]string{"error": msg})
}

// OK is the {"status":"ok"} success body.
func OK() (events.APIGatewayProxyResponse, error) {
	return APIResponse(200, map[string]string{"status": "ok"})
}

func corsHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
	}
}
