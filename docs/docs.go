// Package docs registers the swagger documents served under /swagger/.
// Regenerate with: swag init --instanceName <ride|location>
package docs

import "github.com/swaggo/swag"

const securityTemplate = `"securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the ID token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }`

const rideTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Health Check", "responses": {"200": {"description": "OK"}}}},
        "/profiles/me": {
            "get": {"tags": ["Profiles"], "summary": "Own profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}},
            "put": {"tags": ["Profiles"], "summary": "Update profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failure"}}}
        },
        "/profiles/me/role": {"post": {"tags": ["Profiles"], "summary": "Switch active role", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failure"}}}},
        "/rides": {"post": {"tags": ["Rides"], "summary": "Create ride", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Guard violation"}, "422": {"description": "Validation failure"}}}},
        "/rides/mine": {"get": {"tags": ["Rides"], "summary": "Current ride", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/rides/pending": {"get": {"tags": ["Rides"], "summary": "Pending queue", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation"}}}},
        "/rides/{ride_id}": {"get": {"tags": ["Rides"], "summary": "Get ride", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Not your ride"}, "404": {"description": "Not found"}}}},
        "/rides/{ride_id}/events": {"get": {"tags": ["Rides"], "summary": "Ride history", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Not your ride"}}}},
        "/rides/{ride_id}/contacts/{role}": {"get": {"tags": ["Rides"], "summary": "Read contact", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Hidden"}}}},
        "/rides/{ride_id}/offer": {"post": {"tags": ["Transitions"], "summary": "Send offer", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/rides/{ride_id}/accept": {"post": {"tags": ["Transitions"], "summary": "Accept ride", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/rides/{ride_id}/offer/accept": {"post": {"tags": ["Transitions"], "summary": "Accept offer", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/rides/{ride_id}/offer/reject": {"post": {"tags": ["Transitions"], "summary": "Reject offer", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/rides/{ride_id}/start": {"post": {"tags": ["Transitions"], "summary": "Start trip", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/rides/{ride_id}/complete": {"post": {"tags": ["Transitions"], "summary": "Complete ride", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/rides/{ride_id}/cancel": {"post": {"tags": ["Transitions"], "summary": "Cancel ride", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Guard violation or conflict lost"}}}},
        "/ws/rides/{ride_id}": {"get": {"tags": ["Streams"], "summary": "Watch ride", "security": [{"BearerAuth": []}], "responses": {"101": {"description": "Switching Protocols"}}}},
        "/ws/queue": {"get": {"tags": ["Streams"], "summary": "Watch pending queue", "security": [{"BearerAuth": []}], "responses": {"101": {"description": "Switching Protocols"}}}}
    },
    ` + securityTemplate + `
}`

const locationTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Health Check", "responses": {"200": {"description": "OK"}}}},
        "/rides/{ride_id}/position": {"post": {"tags": ["Location"], "summary": "Publish driver position", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Not your ride"}}}},
        "/ws/rides/{ride_id}/position": {"get": {"tags": ["Streams"], "summary": "Watch driver position", "security": [{"BearerAuth": []}], "responses": {"101": {"description": "Switching Protocols"}}}},
        "/geo/search": {"get": {"tags": ["Geo"], "summary": "Geocode", "responses": {"200": {"description": "OK"}, "404": {"description": "No match"}, "503": {"description": "Provider unavailable"}}}},
        "/geo/reverse": {"get": {"tags": ["Geo"], "summary": "Reverse geocode", "responses": {"200": {"description": "OK"}, "503": {"description": "Provider unavailable"}}}},
        "/geo/route": {"get": {"tags": ["Geo"], "summary": "Driving route", "responses": {"200": {"description": "OK"}, "404": {"description": "No route"}}}},
        "/geo/estimate": {"get": {"tags": ["Geo"], "summary": "Price estimate", "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failure"}}}}
    },
    ` + securityTemplate + `
}`

// RideInfo holds exported Swagger Info so clients can modify it
var RideInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ride Service API",
	Description:      "Profiles and the ride lifecycle.",
	InfoInstanceName: "ride",
	SwaggerTemplate:  rideTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// LocationInfo holds exported Swagger Info so clients can modify it
var LocationInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3001",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Location Service API",
	Description:      "Live driver positions, geocoding, routing and estimates.",
	InfoInstanceName: "location",
	SwaggerTemplate:  locationTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(RideInfo.InstanceName(), RideInfo)
	swag.Register(LocationInfo.InstanceName(), LocationInfo)
}
