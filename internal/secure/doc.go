// Package secure keeps login credentials in encrypted memory until they are
// sent to Vault.
//
// Passwords, AppRole secret ids and tokens read from the prompt or from
// dsvault.yaml are copied into memguard enclaves: encrypted with
// XSalsa20Poly1305, kept out of swap where mlock is available, and wiped on
// Destroy. A credential is decrypted only for the duration of a callback:
//
//	creds := secure.NewCredentials()
//	defer creds.Destroy()
//
//	if err := creds.SetString("password", pw); err != nil {
//	    return err
//	}
//	err := creds.Use("password", func(password string) error {
//	    return login(username, password)
//	})
//
// On Linux mlock is bounded by RLIMIT_MEMLOCK; memguard falls back to
// ordinary memory when locking fails, and the enclave stays encrypted either
// way. Nothing here protects against an attacker with access to the running
// process.
package secure
