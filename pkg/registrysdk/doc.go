/*
Package registrysdk is the Go client for the HiveCert tenant registry.

The request and response types are shared with the server handlers, so the
JSON shapes here are the wire format.

	client := registrysdk.NewClient("https://registry.hivecert.example")

	// Phone registrations need a verified number first.
	_, err := client.SendPhoneCode(ctx, "+61400111222")
	_, err = client.VerifyPhoneCode(ctx, "+61400111222", code)

	res, err := client.Register(ctx, registrysdk.RegisterRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "+61400111222",
		Password:    "password123",
		Role:        "admin",
	})

Failed calls return an *APIError carrying the status code, the message and,
for validation and conflict errors, the offending field:

	var apiErr *registrysdk.APIError
	if errors.As(err, &apiErr) && apiErr.IsConflict() {
		// email or namespace already taken
	}
*/
package registrysdk
