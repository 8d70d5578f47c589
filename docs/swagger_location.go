package docs

// @title           Location Service API
// @version         1.0
// @description     Location service relays live driver positions of active rides and fronts the geocoding and routing providers used for labels, routes and price estimates.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3001
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the ID token. WebSocket clients may pass ?token= instead.
