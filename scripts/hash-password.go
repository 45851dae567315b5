package main

import (
	"fmt"
	"os"

	"github.com/exp-solution/checkin-scanner/internal/util"
)

func main() {
	var key string
	if len(os.Args) >= 2 {
		key = os.Args[1]
	} else {
		generated, err := util.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		key = generated
		fmt.Fprintf(os.Stderr, "Generated station key: %s\n", key)
	}

	hash, err := util.HashPassword(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
