package docs

// @title           Ride Service API
// @version         1.0
// @description     Ride service owns profiles and the ride lifecycle: requests, offers, matching, trip start, completion and cancellation. Ride and queue watchers are served over WebSocket.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the ID token. WebSocket clients may pass ?token= instead.
