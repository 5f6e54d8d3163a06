// Package config loads the optional coolutils configuration file.
//
// The file is YAML (parsed with gopkg.in/yaml.v3) and only provides
// defaults: every value can be overridden by the matching command-line
// flag. Example:
//
//	json:
//	  dialect: comments
//	install:
//	  quiet: false
//	  exceptionOk: false
//	  gitignore: true
//	  exclude: ["*.pyc", "__pycache__/"]
//	notify:
//	  server: smtp.example.com:587
//	  address: me@example.com
//	  passwordEnv: COOLUTILS_SMTP_PASSWORD
//	  subject: job finished
package config
